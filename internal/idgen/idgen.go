// Package idgen mints record ids: a type prefix followed by a nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Record type prefixes. Nothing parses them; they only make ids readable
// in logs and exports.
const (
	ProjectPrefix    = "prj-"
	TaskPrefix       = "tsk-"
	DependencyPrefix = "dep-"
	TodoPrefix       = "todo-"
	DragPrefix       = "drag-"
)

const (
	// Alphabet is URL safe and unambiguous in the CLI.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Length counts random characters only.
	Length = 10
)

// Generate returns prefix followed by Length random characters.
func Generate(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("generate %sid: %w", prefix, err)
	}
	return prefix + id, nil
}

func Project() (string, error)    { return Generate(ProjectPrefix) }
func Task() (string, error)       { return Generate(TaskPrefix) }
func Dependency() (string, error) { return Generate(DependencyPrefix) }
func Todo() (string, error)       { return Generate(TodoPrefix) }
func Drag() (string, error)       { return Generate(DragPrefix) }
