// Package testutil holds fixtures for the internal/integration tests: small builder functions returning
// ready-to-use values rather than a generic factory framework.
package testutil

import (
	"github.com/podlove/outliner/internal/outline"
)

// EventID builds a well-formed "<uuid>:<originator>" event_id for a test
// command, the composite form outline.ParseEventID expects.
func EventID(uuid, originator string) string {
	return uuid + ":" + originator
}

// InsertCmd builds an InsertNode command with an event_id scoped to
// originator "test".
func InsertCmd(uuid, containerID string, parentID, prevID *string, content, creatorID string) outline.InsertNode {
	return outline.InsertNode{
		CommandBase: outline.CommandBase{EventID: EventID(uuid, "test"), UserID: creatorID},
		UUID:        uuid,
		ContainerID: containerID,
		ParentID:    parentID,
		PrevID:      prevID,
		Content:     content,
		CreatorID:   creatorID,
	}
}

// ChangeContentCmd builds a ChangeContent command.
func ChangeContentCmd(eventID, nodeID, content string) outline.ChangeContent {
	return outline.ChangeContent{
		CommandBase: outline.CommandBase{EventID: EventID(eventID, "test"), UserID: "u1"},
		NodeID:      nodeID,
		Content:     content,
	}
}

// DeleteCmd builds a DeleteNode command.
func DeleteCmd(eventID, nodeID string) outline.DeleteNode {
	return outline.DeleteNode{
		CommandBase: outline.CommandBase{EventID: EventID(eventID, "test"), UserID: "u1"},
		NodeID:      nodeID,
	}
}

// StringPtr is a small convenience used across test files to build *string
// literals inline, mirroring outline.StringPtr without importing it just
// for one-off literals in table-driven tests.
func StringPtr(s string) *string { return &s }
