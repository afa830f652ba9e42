// Package checklist holds the ordered maintenance task list and the progress
// derived from it.
package checklist

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyText       = errors.New("task text must not be empty")
	ErrTaskNotFound    = errors.New("task not found")
	ErrIndexOutOfRange = errors.New("task index out of range")
)

// Task is one checklist entry. ID is the identity; Text is display only, so
// two tasks may share the same text.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Collection is an ordered task list. It is not safe for concurrent use.
type Collection struct {
	tasks []Task
}

// New hydrates a collection from tasks, in order. Tasks without an ID get one.
func New(tasks ...Task) *Collection {
	c := &Collection{tasks: make([]Task, 0, len(tasks))}
	for _, t := range tasks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		c.tasks = append(c.tasks, t)
	}
	return c
}

// Add appends a task with the trimmed text. Blank text is ignored and
// reported with ok == false.
func (c *Collection) Add(text string) (task Task, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, false
	}
	task = Task{ID: uuid.NewString(), Text: text}
	c.tasks = append(c.tasks, task)
	return task, true
}

// Toggle sets the completion flag of the task with id. It reports whether
// the task exists.
func (c *Collection) Toggle(id string, completed bool) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.tasks[i].Completed = completed
	return true
}

// Edit renames the task with id. Completion is preserved.
func (c *Collection) Edit(id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	i := c.indexOf(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	c.tasks[i].Text = text
	return nil
}

// Delete removes the task with id, completed or not.
func (c *Collection) Delete(id string) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
	return true
}

// Reorder moves the task at from so that it ends up at index to.
func (c *Collection) Reorder(from, to int) error {
	n := len(c.tasks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}

	moved := c.tasks[from]
	c.tasks = append(c.tasks[:from], c.tasks[from+1:]...)
	c.tasks = append(c.tasks[:to], append([]Task{moved}, c.tasks[to:]...)...)
	return nil
}

// Tasks returns a copy of the tasks in order.
func (c *Collection) Tasks() []Task {
	out := make([]Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Find returns the task with id and its position.
func (c *Collection) Find(id string) (Task, int, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return Task{}, -1, false
	}
	return c.tasks[i], i, true
}

// FindByText returns the first task whose text matches exactly.
func (c *Collection) FindByText(text string) (Task, bool) {
	for _, t := range c.tasks {
		if t.Text == text {
			return t, true
		}
	}
	return Task{}, false
}

// Labels returns the task texts in order.
func (c *Collection) Labels() []string {
	out := make([]string, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, t.Text)
	}
	return out
}

// CompletedLabels returns the texts of completed tasks in order.
func (c *Collection) CompletedLabels() []string {
	out := []string{}
	for _, t := range c.tasks {
		if t.Completed {
			out = append(out, t.Text)
		}
	}
	return out
}

// PendingLabels returns the texts of open tasks in order.
func (c *Collection) PendingLabels() []string {
	out := []string{}
	for _, t := range c.tasks {
		if !t.Completed {
			out = append(out, t.Text)
		}
	}
	return out
}

func (c *Collection) Len() int {
	return len(c.tasks)
}

func (c *Collection) CompletedCount() int {
	n := 0
	for _, t := range c.tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

// Progress is the rounded completion percentage of the collection.
func (c *Collection) Progress() int {
	return Progress(c.Len(), c.CompletedCount())
}

// Done reports whether there is at least one task and all are completed.
func (c *Collection) Done() bool {
	return c.Len() > 0 && c.CompletedCount() == c.Len()
}

func (c *Collection) indexOf(id string) int {
	for i, t := range c.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
