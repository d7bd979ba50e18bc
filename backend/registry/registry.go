package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/andi/docconvert/backend/models"
)

// Registry is the in-memory source of truth for task state. Records live for
// the process lifetime and are never deleted; mutation happens only through
// the transition operations below so that status stays monotonic.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		tasks: make(map[string]*models.Task),
	}
}

// Create inserts a new task record. The record must carry a unique ID and is
// forced into the processing status.
func (r *Registry) Create(task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if _, exists := r.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	task.Status = models.TaskStatusProcessing
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	stored := *task
	r.tasks[task.ID] = &stored
	return nil
}

// Get returns a copy of the task record
func (r *Registry) Get(id string) (models.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return *task, true
}

// MarkCompleted performs the terminal transition to completed and records the
// converted artifact's path. It fails if the task is unknown or already
// terminal.
func (r *Registry) MarkCompleted(id, outputPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, err := r.processing(id)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = models.TaskStatusCompleted
	task.OutputPath = outputPath
	task.CompletedAt = &now
	return nil
}

// MarkFailed performs the terminal transition to failed with a diagnostic
// message. It fails if the task is unknown or already terminal.
func (r *Registry) MarkFailed(id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, err := r.processing(id)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = models.TaskStatusFailed
	task.ErrorMessage = message
	task.CompletedAt = &now
	return nil
}

// AttachRemote records the object store location of the uploaded artifact.
// Only completed tasks can carry a remote key.
func (r *Registry) AttachRemote(id, bucket, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	if task.Status != models.TaskStatusCompleted {
		return fmt.Errorf("task %s is %s, remote key requires completed", id, task.Status)
	}

	task.RemoteBucket = bucket
	task.RemoteObjectKey = key
	return nil
}

// InvalidateLocal marks the task's local files as reclaimed. The path fields
// are kept for display but must not be opened once the flag is set. Calling
// it again is a no-op.
func (r *Registry) InvalidateLocal(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}

	task.LocalReclaimed = true
	return nil
}

// Snapshot returns copies of all task records, for the sweeper's scan.
func (r *Registry) Snapshot() []models.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]models.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, *task)
	}
	return tasks
}

// Len returns the number of tracked tasks
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// processing returns the live record if the task exists and has not reached
// a terminal status. Callers must hold the write lock.
func (r *Registry) processing(id string) (*models.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if task.IsTerminal() {
		return nil, fmt.Errorf("task %s is already %s", id, task.Status)
	}
	return task, nil
}
