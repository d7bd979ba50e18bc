package publisher

import (
	"context"
	"fmt"

	"github.com/andi/docconvert/backend/database"
	"github.com/andi/docconvert/backend/localstore"
	"github.com/andi/docconvert/backend/models"
	"github.com/andi/docconvert/backend/pool"
	"github.com/andi/docconvert/backend/registry"
	"github.com/sirupsen/logrus"
)

// Uploader is the object store surface the publisher depends on
type Uploader interface {
	Available() bool
	Bucket() string
	Upload(ctx context.Context, key, localPath string) error
}

// Historian records terminal conversion outcomes
type Historian interface {
	Record(record *database.ConversionRecord) error
}

// Publisher resolves worker pool results into terminal task transitions,
// uploads completed artifacts and triggers eager local reclamation.
type Publisher struct {
	reg      *registry.Registry
	store    *localstore.Store
	uploader Uploader
	history  Historian
	log      *logrus.Logger
}

// New creates a publisher. history may be nil to disable audit records.
func New(reg *registry.Registry, store *localstore.Store, uploader Uploader, history Historian, log *logrus.Logger) *Publisher {
	return &Publisher{
		reg:      reg,
		store:    store,
		uploader: uploader,
		history:  history,
		log:      log,
	}
}

// Watch consumes the result channel for a submitted task in the background.
func (p *Publisher) Watch(taskID string, results <-chan pool.Result) {
	go p.handle(taskID, results)
}

// handle performs the single terminal transition for the task. Whatever goes
// wrong inside, the task must not be left in processing.
func (p *Publisher) handle(taskID string, results <-chan pool.Result) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("Result handling panicked for task %s: %v", taskID, r)
			p.fail(taskID, fmt.Sprintf("internal error during result handling: %v", r))
		}
	}()

	res := <-results
	if res.Err != nil {
		p.fail(taskID, res.Err.Error())
		return
	}

	if err := p.reg.MarkCompleted(taskID, res.Path); err != nil {
		p.log.Errorf("Failed to mark task %s completed: %v", taskID, err)
		return
	}

	task, _ := p.reg.Get(taskID)
	p.log.Infof("Conversion completed: %s, %s", taskID, task.DownloadName())

	p.publish(task, res.Path)
	p.record(taskID)
}

// publish uploads the artifact and reclaims local files on success. Upload
// failure never reverts the completed status; local files then remain the
// only copy and reclamation stays gated off.
func (p *Publisher) publish(task models.Task, outputPath string) {
	if !p.uploader.Available() {
		p.log.Warnf("Object store unavailable, task %s stays local-only", task.ID)
		return
	}

	key := task.ID + "/" + task.DownloadName()
	if err := p.uploader.Upload(context.Background(), key, outputPath); err != nil {
		p.log.Errorf("Upload failed for task %s: %v", task.ID, err)
		return
	}

	if err := p.reg.AttachRemote(task.ID, p.uploader.Bucket(), key); err != nil {
		p.log.Errorf("Failed to attach remote key for task %s: %v", task.ID, err)
		return
	}

	if task.KeepLocal {
		return
	}

	if err := p.store.Reclaim(task.ID, task.InputPath); err != nil {
		p.log.Errorf("Failed to reclaim local files for task %s: %v", task.ID, err)
		return
	}
	if err := p.reg.InvalidateLocal(task.ID); err != nil {
		p.log.Errorf("Failed to invalidate local files for task %s: %v", task.ID, err)
	}
}

// fail transitions the task to failed with the captured diagnostic
func (p *Publisher) fail(taskID, message string) {
	p.log.Errorf("Conversion failed: %s, reason: %s", taskID, message)
	if err := p.reg.MarkFailed(taskID, message); err != nil {
		p.log.Errorf("Failed to mark task %s failed: %v", taskID, err)
		return
	}
	p.record(taskID)
}

// record appends the task's final state to the conversion history. History
// errors are logged and never affect the task.
func (p *Publisher) record(taskID string) {
	if p.history == nil {
		return
	}

	task, ok := p.reg.Get(taskID)
	if !ok {
		return
	}

	var durationMs int64
	if task.CompletedAt != nil {
		durationMs = task.CompletedAt.Sub(task.CreatedAt).Milliseconds()
	}

	rec := &database.ConversionRecord{
		TaskID:           task.ID,
		OriginalFilename: task.OriginalFilename,
		TargetFormat:     task.TargetFormat,
		Status:           task.Status,
		ErrorMessage:     task.ErrorMessage,
		RemoteBucket:     task.RemoteBucket,
		RemoteObjectKey:  task.RemoteObjectKey,
		DurationMs:       durationMs,
		CreatedAt:        task.CreatedAt,
	}
	if err := p.history.Record(rec); err != nil {
		p.log.Errorf("Failed to record history for task %s: %v", taskID, err)
	}
}
