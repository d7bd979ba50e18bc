package sweeper

import (
	"sync"
	"time"

	"github.com/andi/docconvert/backend/localstore"
	"github.com/andi/docconvert/backend/models"
	"github.com/andi/docconvert/backend/registry"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically reclaims local files for tasks whose artifacts are
// already durable in the object store and older than the local TTL.
type Sweeper struct {
	reg      *registry.Registry
	store    *localstore.Store
	ttl      time.Duration
	interval time.Duration
	grace    time.Duration
	stopChan chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	stopped  bool
	log      *logrus.Logger
}

// New creates a sweeper
func New(reg *registry.Registry, store *localstore.Store, ttl, interval, grace time.Duration, log *logrus.Logger) *Sweeper {
	return &Sweeper{
		reg:      reg,
		store:    store,
		ttl:      ttl,
		interval: interval,
		grace:    grace,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		log:      log,
	}
}

// Start starts the background sweep loop
func (s *Sweeper) Start() {
	s.log.Infof("Starting retention sweeper, interval %v, local TTL %v", s.interval, s.ttl)
	go s.run()
}

// Stop wakes the loop immediately and waits for it to exit, up to the
// configured grace period.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)

	select {
	case <-s.done:
		s.log.Info("Retention sweeper stopped")
	case <-time.After(s.grace):
		s.log.Warnf("Retention sweeper did not stop within %v, abandoning it", s.grace)
	}
}

// run is the sweep loop
func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(time.Now())

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep runs one reclamation cycle against the given clock. Tasks already
// reclaimed eagerly after upload are skipped; the sweep is advisory only.
func (s *Sweeper) Sweep(now time.Time) int {
	reclaimed := 0
	for _, task := range s.reg.Snapshot() {
		if !s.expired(task, now) {
			continue
		}

		if err := s.store.Reclaim(task.ID, task.InputPath); err != nil {
			s.log.Errorf("Sweep failed to reclaim task %s: %v", task.ID, err)
			continue
		}
		if err := s.reg.InvalidateLocal(task.ID); err != nil {
			s.log.Errorf("Sweep failed to invalidate task %s: %v", task.ID, err)
			continue
		}
		reclaimed++
	}

	if reclaimed > 0 {
		s.log.Infof("Sweep reclaimed local files for %d task(s)", reclaimed)
	}
	return reclaimed
}

// expired selects tasks safe to reclaim: completed, durable remotely, local
// files still present, past the TTL and not marked to keep local copies.
func (s *Sweeper) expired(task models.Task, now time.Time) bool {
	return task.Status == models.TaskStatusCompleted &&
		task.RemoteObjectKey != "" &&
		!task.LocalReclaimed &&
		!task.KeepLocal &&
		task.CreatedAt.Add(s.ttl).Before(now)
}
