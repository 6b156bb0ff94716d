package buildsys

import (
	"context"
	"fmt"
	"sort"
)

// Action performs the actual work of a task
type Action func(ctx context.Context) error

// Task describes a single named build step
type Task struct {
	Short string
	Desc  string
	// Base is the directory Inputs and Outputs are relative to
	Base    string
	Inputs  []string
	Outputs []string
	// Deps are run sequentially (in order) before the task itself
	Deps []string
	// Parallel lists tasks that are run concurrently after Deps and before Action
	Parallel []string
	Action   Action
	Hidden   bool
}

// TaskList maps short names to each relevant task
type TaskList map[string]*Task

// String returns a string representation of the task
func (t *Task) String() string {
	return fmt.Sprintf("<Task %s: %s>", t.Short, t.Desc)
}

// Add registers the given tasks under their short names
func (l TaskList) Add(tasks ...*Task) {
	for _, task := range tasks {
		l[task.Short] = task
	}
}

// Visible returns the names of all tasks that aren't hidden, sorted alphabetically
func (l TaskList) Visible() []string {
	names := make([]string, 0, len(l))
	for name, task := range l {
		if !task.Hidden {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names
}
