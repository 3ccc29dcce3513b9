package model

// TaskFilter holds criteria for querying tasks.
type TaskFilter struct {
	ProjectID string     `json:"project_id,omitempty"`
	ParentID  string     `json:"parent_id,omitempty"`
	Types     []TaskType `json:"types,omitempty"`
	Search    string     `json:"search,omitempty"` // substring match on name/description
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

// ProjectFilter holds criteria for querying projects.
type ProjectFilter struct {
	OwnerID string          `json:"owner_id,omitempty"`
	Status  []ProjectStatus `json:"status,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}
