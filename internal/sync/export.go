package sync

import (
	"bytes"
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/model"
	"github.com/krushilnaik/constructum-mk2/internal/store"
)

// FormatVersion is written into every export header.
const FormatVersion = "1"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version         string    `json:"version"`
	Type            string    `json:"type"`
	Timestamp       time.Time `json:"timestamp"`
	Digest          string    `json:"digest"`
	ProjectCount    int       `json:"project_count"`
	TaskCount       int       `json:"task_count"`
	DependencyCount int       `json:"dependency_count"`
	TodoCount       int       `json:"todo_count"`
	ConfigCount     int       `json:"config_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// snapshot is everything one export writes, gathered before encoding so the
// header can carry exact counts.
type snapshot struct {
	projects []*model.Project
	tasks    []*model.Task
	deps     []*model.Dependency
	todos    []*model.TodoItem
	configs  []*model.Config
}

func collect(ctx context.Context, s store.Store) (*snapshot, error) {
	var snap snapshot

	projects, err := s.ListProjects(ctx, model.ProjectFilter{})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	slices.SortFunc(projects, func(a, b *model.Project) int { return cmp.Compare(a.ID, b.ID) })
	snap.projects = projects

	for _, p := range projects {
		// Tasks come back in row order; keep it so a restore preserves the chart.
		tasks, _, err := s.ListTasks(ctx, model.TaskFilter{ProjectID: p.ID})
		if err != nil {
			return nil, fmt.Errorf("list tasks for %s: %w", p.ID, err)
		}
		snap.tasks = append(snap.tasks, tasks...)

		deps, err := s.ListDependencies(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list dependencies for %s: %w", p.ID, err)
		}
		snap.deps = append(snap.deps, deps...)

		for _, t := range tasks {
			todos, err := s.ListTodos(ctx, t.ID)
			if err != nil {
				return nil, fmt.Errorf("list todos for %s: %w", t.ID, err)
			}
			snap.todos = append(snap.todos, todos...)
		}
	}

	configs, err := s.ListAllConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	snap.configs = configs

	return &snap, nil
}

// Export is one encoded snapshot of every schedule.
type Export struct {
	Data []byte
	// Digest is the hex SHA-256 of every record after the header, so two
	// exports of an unchanged schedule share it.
	Digest string
}

// Build collects and encodes a snapshot: a header, then projects sorted by
// ID, their tasks in row order, dependencies, todos and configs.
func Build(ctx context.Context, s store.Store, at time.Time) (*Export, error) {
	snap, err := collect(ctx, s)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	emit := func(typ, id string, data any) error {
		if err := enc.Encode(record{Type: typ, Data: data}); err != nil {
			return fmt.Errorf("encode %s %s: %w", typ, id, err)
		}
		return nil
	}
	for _, p := range snap.projects {
		if err := emit("project", p.ID, p); err != nil {
			return nil, err
		}
	}
	for _, t := range snap.tasks {
		if err := emit("task", t.ID, t); err != nil {
			return nil, err
		}
	}
	for _, d := range snap.deps {
		if err := emit("dependency", d.ID, d); err != nil {
			return nil, err
		}
	}
	for _, td := range snap.todos {
		if err := emit("todo", td.ID, td); err != nil {
			return nil, err
		}
	}
	for _, c := range snap.configs {
		if err := emit("config", c.Key, c); err != nil {
			return nil, err
		}
	}

	sum := sha256.Sum256(body.Bytes())
	digest := hex.EncodeToString(sum[:])

	var out bytes.Buffer
	hdr, err := json.Marshal(header{
		Version:         FormatVersion,
		Type:            "header",
		Timestamp:       at.UTC(),
		Digest:          digest,
		ProjectCount:    len(snap.projects),
		TaskCount:       len(snap.tasks),
		DependencyCount: len(snap.deps),
		TodoCount:       len(snap.todos),
		ConfigCount:     len(snap.configs),
	})
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	out.Write(hdr)
	out.WriteByte('\n')
	out.Write(body.Bytes())
	return &Export{Data: out.Bytes(), Digest: digest}, nil
}

// ExportJSONL writes a snapshot taken now to w. Nothing is written when
// collecting fails.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	e, err := Build(ctx, s, time.Now())
	if err != nil {
		return err
	}
	_, err = w.Write(e.Data)
	return err
}
