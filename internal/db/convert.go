package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/podlove/outliner/internal/outline"
)

const sqliteTimeLayout = time.RFC3339Nano

// NodeRowToDomain converts a NodeRow plus its URL rows into an
// outline.Node.
func NodeRowToDomain(row NodeRow, urlRows []URLRow) (outline.Node, error) {
	created, err := time.Parse(sqliteTimeLayout, row.CreatedAt)
	if err != nil {
		return outline.Node{}, err
	}
	updated, err := time.Parse(sqliteTimeLayout, row.UpdatedAt)
	if err != nil {
		return outline.Node{}, err
	}

	urls := make([]outline.URLRecord, 0, len(urlRows))
	for _, u := range urlRows {
		rec := outline.URLRecord{
			StartBytes: int(u.StartBytes),
			SizeBytes:  int(u.SizeBytes),
			URL:        u.URL,
			NodeID:     u.NodeID,
		}
		if u.Metadata.Valid {
			var meta map[string]any
			if err := json.Unmarshal([]byte(u.Metadata.String), &meta); err != nil {
				return outline.Node{}, err
			}
			rec.Metadata = meta
		}
		urls = append(urls, rec)
	}

	return outline.Node{
		UUID:        row.UUID,
		Content:     row.Content,
		ContainerID: row.ContainerID,
		ParentID:    StringPtr(row.ParentID),
		PrevID:      StringPtr(row.PrevID),
		CreatorID:   row.CreatorID,
		URLs:        urls,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

// DomainNodeToInsertParams builds the row to persist a freshly created
// node.
func DomainNodeToInsertParams(n outline.Node) InsertNodeParams {
	return InsertNodeParams{
		UUID:        n.UUID,
		ContainerID: n.ContainerID,
		Content:     n.Content,
		ParentID:    NullString(n.ParentID),
		PrevID:      NullString(n.PrevID),
		CreatorID:   n.CreatorID,
		CreatedAt:   n.CreatedAt.UTC().Format(sqliteTimeLayout),
		UpdatedAt:   n.UpdatedAt.UTC().Format(sqliteTimeLayout),
	}
}

// DomainNodeToUpdateParams builds the row to persist a node whose content,
// position or container changed.
func DomainNodeToUpdateParams(n outline.Node) UpdateNodeParams {
	return UpdateNodeParams{
		UUID:        n.UUID,
		ContainerID: n.ContainerID,
		Content:     n.Content,
		ParentID:    NullString(n.ParentID),
		PrevID:      NullString(n.PrevID),
		UpdatedAt:   n.UpdatedAt.UTC().Format(sqliteTimeLayout),
	}
}

// DomainURLsToParams builds the replace-set for a node's extracted URLs.
func DomainURLsToParams(urls []outline.URLRecord) ([]UpsertURLParams, error) {
	out := make([]UpsertURLParams, 0, len(urls))
	for _, u := range urls {
		var meta sql.NullString
		if u.Metadata != nil {
			b, err := json.Marshal(u.Metadata)
			if err != nil {
				return nil, err
			}
			meta = sql.NullString{String: string(b), Valid: true}
		}
		out = append(out, UpsertURLParams{
			NodeID:     u.NodeID,
			StartBytes: int64(u.StartBytes),
			SizeBytes:  int64(u.SizeBytes),
			URL:        u.URL,
			Metadata:   meta,
		})
	}
	return out, nil
}

// EventRowToDomain converts an EventRow back into an outline.Event. The
// payload JSON is decoded into a generic map[string]any, since the event
// log's reader (the replay CLI) doesn't need the concrete payload struct — only
// internal/eventstore's writer path does, and it builds the Event it
// publishes directly from the payload it was given rather than round
// tripping through the row.
func EventRowToDomain(row EventRow) (outline.Event, error) {
	created, err := time.Parse(sqliteTimeLayout, row.CreatedAt)
	if err != nil {
		return outline.Event{}, err
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
		return outline.Event{}, err
	}
	return outline.Event{
		EventID:     row.EventID,
		EventType:   outline.EventType(row.EventType),
		ContainerID: row.ContainerID,
		UserID:      row.UserID,
		Payload:     payload,
		CreatedAt:   created,
		Sequence:    row.Sequence,
	}, nil
}
