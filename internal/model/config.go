package model

import (
	"encoding/json"
	"time"
)

// Config is a key-value configuration record stored as JSONB.
// Keys use the format "{namespace}:{name}" (e.g. "view:alice:prj-abc").
type Config struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ViewState is the per-viewer presentation state of a project chart.
// It is stored as a Config under ViewKey.
type ViewState struct {
	Collapsed []string `json:"collapsed"`
	Selected  string   `json:"selected,omitempty"`
}

// ViewKey returns the config key holding owner's view of a project.
func ViewKey(owner, projectID string) string {
	if owner == "" {
		owner = "anonymous"
	}
	return "view:" + owner + ":" + projectID
}
