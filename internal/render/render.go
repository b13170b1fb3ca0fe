// Package render exports a container's node tree to markdown: a YAML
// frontmatter header carrying container metadata, followed by nested
// bullets — one per node, indented to the node's depth.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/podlove/outliner/internal/outline"
)

const frontmatterDelimiter = "---"

// Document is a frontmatter map plus a body, kept generic so Parse/Render
// round-trip any markdown this package produces.
type Document struct {
	Frontmatter map[string]any
	Body        string
}

// Frontmatter is the metadata header Markdown exports carry: container_id,
// node_count, and the export timestamp.
type Frontmatter struct {
	ContainerID string    `yaml:"container_id"`
	NodeCount   int       `yaml:"node_count"`
	ExportedAt  time.Time `yaml:"exported_at"`
}

// Markdown renders nodes (every node belonging to one container, in the
// pre-order tree traversal ListByContainer returns) as a nested bullet
// outline with a YAML frontmatter header. exportedAt is supplied by the
// caller so render stays free of wall-clock reads.
func Markdown(containerID string, nodes []outline.Node, exportedAt time.Time) ([]byte, error) {
	fm := Frontmatter{ContainerID: containerID, NodeCount: len(nodes), ExportedAt: exportedAt}
	fmMap, err := toMap(fm)
	if err != nil {
		return nil, fmt.Errorf("render: frontmatter: %w", err)
	}

	var body bytes.Buffer
	writeOutline(&body, nodes)

	return Render(&Document{Frontmatter: fmMap, Body: body.String()})
}

// writeOutline emits one markdown bullet per node, in the order nodes
// arrives (ListByContainer's pre-order tree traversal), indented two
// spaces per depth level. Depth is recovered by walking each node's
// ParentID chain against the rest of the batch.
func writeOutline(w *bytes.Buffer, nodes []outline.Node) {
	byID := make(map[string]outline.Node, len(nodes))
	for _, n := range nodes {
		byID[n.UUID] = n
	}
	for _, n := range nodes {
		depth := 0
		for cur := n; cur.ParentID != nil; depth++ {
			parent, ok := byID[*cur.ParentID]
			if !ok {
				break
			}
			cur = parent
		}
		fmt.Fprintf(w, "%s- %s\n", strings.Repeat("  ", depth), oneLine(n.Content))
	}
}

func oneLine(content string) string {
	return strings.ReplaceAll(strings.TrimSpace(content), "\n", " ")
}

func toMap(v any) (map[string]any, error) {
	body, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Parse splits a markdown document into frontmatter and body.
func Parse(content []byte) (*Document, error) {
	str := string(content)

	if !strings.HasPrefix(str, frontmatterDelimiter) {
		return &Document{Frontmatter: make(map[string]any), Body: str}, nil
	}

	rest := str[len(frontmatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontmatterDelimiter)
	if idx == -1 {
		return nil, fmt.Errorf("render: unclosed frontmatter")
	}

	fmYAML := rest[:idx]
	body := strings.TrimPrefix(rest[idx+len("\n"+frontmatterDelimiter):], "\n")

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(fmYAML), &frontmatter); err != nil {
		return nil, fmt.Errorf("render: parse frontmatter: %w", err)
	}
	if frontmatter == nil {
		frontmatter = make(map[string]any)
	}

	return &Document{Frontmatter: frontmatter, Body: body}, nil
}

// Render combines frontmatter and body into a markdown document.
func Render(doc *Document) ([]byte, error) {
	var buf bytes.Buffer

	if len(doc.Frontmatter) > 0 {
		buf.WriteString(frontmatterDelimiter)
		buf.WriteString("\n")

		fmBytes, err := yaml.Marshal(doc.Frontmatter)
		if err != nil {
			return nil, fmt.Errorf("render: marshal frontmatter: %w", err)
		}
		buf.Write(fmBytes)

		buf.WriteString(frontmatterDelimiter)
		buf.WriteString("\n")
	}

	buf.WriteString(doc.Body)

	return buf.Bytes(), nil
}
