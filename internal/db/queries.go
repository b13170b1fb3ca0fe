package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, the hand-rolled analogue of
// sqlc's generated interface of the same name.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries is the generated-style query layer: one method per statement, no
// business logic. internal/repo composes these into the Node Repository
// contract.
type Queries struct {
	db DBTX
}

// New builds a Queries bound to db (a *sql.DB or a *sql.Tx).
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx rebinds q to run against tx, the pattern internal/db.Store.WithTx
// uses to hand a transactional Queries to its callback.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// NodeRow is the sqlite row shape for the nodes table.
type NodeRow struct {
	UUID        string
	ContainerID string
	Content     string
	ParentID    sql.NullString
	PrevID      sql.NullString
	CreatorID   string
	CreatedAt   string
	UpdatedAt   string
}

// InsertNodeParams are the fields InsertNode writes.
type InsertNodeParams struct {
	UUID        string
	ContainerID string
	Content     string
	ParentID    sql.NullString
	PrevID      sql.NullString
	CreatorID   string
	CreatedAt   string
	UpdatedAt   string
}

func (q *Queries) InsertNode(ctx context.Context, arg InsertNodeParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO nodes (uuid, container_id, content, parent_id, prev_id, creator_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, arg.UUID, arg.ContainerID, arg.Content, arg.ParentID, arg.PrevID, arg.CreatorID, arg.CreatedAt, arg.UpdatedAt)
	return err
}

func (q *Queries) GetNode(ctx context.Context, uuid string) (NodeRow, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT uuid, container_id, content, parent_id, prev_id, creator_id, created_at, updated_at
		FROM nodes WHERE uuid = ?
	`, uuid)
	var n NodeRow
	err := row.Scan(&n.UUID, &n.ContainerID, &n.Content, &n.ParentID, &n.PrevID, &n.CreatorID, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (q *Queries) ListNodesByContainer(ctx context.Context, containerID string) ([]NodeRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT uuid, container_id, content, parent_id, prev_id, creator_id, created_at, updated_at
		FROM nodes WHERE container_id = ?
	`, containerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodeRows(rows)
}

func (q *Queries) CountNodesByContainer(ctx context.Context, containerID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE container_id = ?`, containerID)
	var n int64
	err := row.Scan(&n)
	return n, err
}

// UpdateNodeParams holds a full replace of a node's mutable fields; the
// mutator always computes the new complete state before persisting, so
// there is no partial-update variant.
type UpdateNodeParams struct {
	UUID        string
	ContainerID string
	Content     string
	ParentID    sql.NullString
	PrevID      sql.NullString
	UpdatedAt   string
}

func (q *Queries) UpdateNode(ctx context.Context, arg UpdateNodeParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE nodes SET container_id = ?, content = ?, parent_id = ?, prev_id = ?, updated_at = ?
		WHERE uuid = ?
	`, arg.ContainerID, arg.Content, arg.ParentID, arg.PrevID, arg.UpdatedAt, arg.UUID)
	return err
}

func (q *Queries) DeleteNode(ctx context.Context, uuid string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM nodes WHERE uuid = ?`, uuid)
	return err
}

// UpsertURLParams is the row shape for a single extracted URL.
type UpsertURLParams struct {
	NodeID     string
	StartBytes int64
	SizeBytes  int64
	URL        string
	Metadata   sql.NullString
}

func (q *Queries) ReplaceNodeURLs(ctx context.Context, nodeID string, urls []UpsertURLParams) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM urls WHERE node_id = ?`, nodeID); err != nil {
		return err
	}
	for _, u := range urls {
		if _, err := q.db.ExecContext(ctx, `
			INSERT INTO urls (node_id, start_bytes, size_bytes, url, metadata)
			VALUES (?, ?, ?, ?, ?)
		`, u.NodeID, u.StartBytes, u.SizeBytes, u.URL, u.Metadata); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) UpdateURLMetadata(ctx context.Context, nodeID string, startBytes int64, metadata sql.NullString) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE urls SET metadata = ? WHERE node_id = ? AND start_bytes = ?
	`, metadata, nodeID, startBytes)
	return err
}

type URLRow struct {
	NodeID     string
	StartBytes int64
	SizeBytes  int64
	URL        string
	Metadata   sql.NullString
}

func (q *Queries) ListURLsByNode(ctx context.Context, nodeID string) ([]URLRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT node_id, start_bytes, size_bytes, url, metadata FROM urls WHERE node_id = ?
		ORDER BY start_bytes
	`, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []URLRow
	for rows.Next() {
		var u URLRow
		if err := rows.Scan(&u.NodeID, &u.StartBytes, &u.SizeBytes, &u.URL, &u.Metadata); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (q *Queries) ListURLsByContainer(ctx context.Context, containerID string) ([]URLRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT u.node_id, u.start_bytes, u.size_bytes, u.url, u.metadata
		FROM urls u JOIN nodes n ON n.uuid = u.node_id
		WHERE n.container_id = ?
	`, containerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []URLRow
	for rows.Next() {
		var u URLRow
		if err := rows.Scan(&u.NodeID, &u.StartBytes, &u.SizeBytes, &u.URL, &u.Metadata); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// EventRow is the sqlite row shape for the event_data table.
type EventRow struct {
	ContainerID string
	Sequence    int64
	EventID     string
	EventType   string
	UserID      string
	Payload     string
	CreatedAt   string
}

type InsertEventParams struct {
	ContainerID string
	EventID     string
	EventType   string
	UserID      string
	Payload     string
	CreatedAt   string
}

// InsertEvent assigns the next sequence number for the container and
// inserts the row, all within whatever transaction q is bound to — callers
// must run this inside Store.WithTx alongside the node writes it describes
// so the event log and the tree never diverge.
func (q *Queries) InsertEvent(ctx context.Context, arg InsertEventParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence), 0) + 1 FROM event_data WHERE container_id = ?
	`, arg.ContainerID)
	var seq int64
	if err := row.Scan(&seq); err != nil {
		return 0, err
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO event_data (container_id, sequence, event_id, event_type, user_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, arg.ContainerID, seq, arg.EventID, arg.EventType, arg.UserID, arg.Payload, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (q *Queries) ListEventsByContainer(ctx context.Context, containerID string) ([]EventRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT container_id, sequence, event_id, event_type, user_id, payload, created_at
		FROM event_data WHERE container_id = ? ORDER BY sequence ASC
	`, containerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.ContainerID, &e.Sequence, &e.EventID, &e.EventType, &e.UserID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) LatestSequence(ctx context.Context, containerID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM event_data WHERE container_id = ?`, containerID)
	var seq int64
	err := row.Scan(&seq)
	return seq, err
}

func scanNodeRows(rows *sql.Rows) ([]NodeRow, error) {
	var out []NodeRow
	for rows.Next() {
		var n NodeRow
		if err := rows.Scan(&n.UUID, &n.ContainerID, &n.Content, &n.ParentID, &n.PrevID, &n.CreatorID, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
