package model

import (
	"fmt"
	"strings"
	"time"
)

// ConstraintType is the kind of scheduling constraint on a dependency edge.
// The set is closed.
type ConstraintType string

const (
	FinishToStart  ConstraintType = "FS"
	StartToStart   ConstraintType = "SS"
	FinishToFinish ConstraintType = "FF"
	StartToFinish  ConstraintType = "SF"
)

// ConstraintTypes lists every constraint type in display order.
var ConstraintTypes = []ConstraintType{FinishToStart, StartToStart, FinishToFinish, StartToFinish}

// String returns the string representation of the constraint type.
func (c ConstraintType) String() string {
	return string(c)
}

// IsValid checks whether the constraint type is one of FS, SS, FF, SF.
func (c ConstraintType) IsValid() bool {
	switch c {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	}
	return false
}

// Label returns a human-readable name such as "Finish-to-Start".
func (c ConstraintType) Label() string {
	switch c {
	case FinishToStart:
		return "Finish-to-Start"
	case StartToStart:
		return "Start-to-Start"
	case FinishToFinish:
		return "Finish-to-Finish"
	case StartToFinish:
		return "Start-to-Finish"
	}
	return string(c)
}

// ParseConstraintType parses s case-insensitively. An empty string yields FS.
func ParseConstraintType(s string) (ConstraintType, error) {
	if strings.TrimSpace(s) == "" {
		return FinishToStart, nil
	}
	c := ConstraintType(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown constraint type %q (want FS, SS, FF or SF)", s)
	}
	return c, nil
}

// Dependency is a typed edge from a predecessor task to a successor task.
// At most one dependency exists per ordered pair.
type Dependency struct {
	ID            string         `json:"id"`
	ProjectID     string         `json:"project_id,omitempty"`
	PredecessorID string         `json:"predecessor_task_id"`
	SuccessorID   string         `json:"successor_task_id"`
	Type          ConstraintType `json:"dependency_type"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
