package sweeper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andi/docconvert/backend/localstore"
	"github.com/andi/docconvert/backend/models"
	"github.com/andi/docconvert/backend/registry"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type fixture struct {
	reg   *registry.Registry
	store *localstore.Store
	sweep *Sweeper
}

func setup(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	base := t.TempDir()
	store, err := localstore.New(filepath.Join(base, "uploads"), filepath.Join(base, "converted"), testLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	reg := registry.New()
	return &fixture{
		reg:   reg,
		store: store,
		sweep: New(reg, store, ttl, time.Hour, 5*time.Second, testLogger()),
	}
}

// addTask registers a task in the given shape with real files on disk
func (f *fixture) addTask(t *testing.T, id string, createdAt time.Time, completed, uploaded, reclaimed, keepLocal bool) string {
	t.Helper()

	input, err := f.store.SaveUpload(id, ".doc", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	outDir := f.store.OutputDir(id)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatalf("Failed to create output dir: %v", err)
	}

	task := &models.Task{
		ID:               id,
		OriginalFilename: "report.doc",
		TargetFormat:     "docx",
		InputPath:        input,
		KeepLocal:        keepLocal,
		CreatedAt:        createdAt,
	}
	if err := f.reg.Create(task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if completed {
		if err := f.reg.MarkCompleted(id, filepath.Join(outDir, id+".docx")); err != nil {
			t.Fatalf("Failed to complete task: %v", err)
		}
	}
	if uploaded {
		if err := f.reg.AttachRemote(id, "converted-files", id+"/report.docx"); err != nil {
			t.Fatalf("Failed to attach remote: %v", err)
		}
	}
	if reclaimed {
		f.store.Reclaim(id, input)
		f.reg.InvalidateLocal(id)
	}
	return input
}

func TestSweepReclaimsExpiredDurableTasks(t *testing.T) {
	f := setup(t, 24*time.Hour)
	old := time.Now().Add(-48 * time.Hour)

	input := f.addTask(t, "expired", old, true, true, false, false)

	if n := f.sweep.Sweep(time.Now()); n != 1 {
		t.Fatalf("Expected 1 task reclaimed, got %d", n)
	}

	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Error("Input file should be gone")
	}
	if _, err := os.Stat(f.store.OutputDir("expired")); !os.IsNotExist(err) {
		t.Error("Output directory should be gone")
	}

	task, _ := f.reg.Get("expired")
	if !task.LocalReclaimed {
		t.Error("Task should be marked reclaimed")
	}
	if task.Status != models.TaskStatusCompleted {
		t.Error("Sweep must not change task status")
	}
}

func TestSweepSkipsIneligibleTasks(t *testing.T) {
	f := setup(t, 24*time.Hour)
	old := time.Now().Add(-48 * time.Hour)

	f.addTask(t, "fresh", time.Now(), true, true, false, false)     // inside TTL
	f.addTask(t, "no-upload", old, true, false, false, false)       // not durable
	f.addTask(t, "processing", old, false, false, false, false)     // not terminal
	f.addTask(t, "keep-local", old, true, true, false, true)        // retention override
	f.addTask(t, "already-reclaimed", old, true, true, true, false) // eagerly reclaimed

	if n := f.sweep.Sweep(time.Now()); n != 0 {
		t.Fatalf("Expected nothing reclaimed, got %d", n)
	}

	for _, id := range []string{"fresh", "no-upload", "processing", "keep-local"} {
		if _, err := os.Stat(f.store.OutputDir(id)); err != nil {
			t.Errorf("Task %s output dir should survive: %v", id, err)
		}
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	f := setup(t, time.Hour)
	f.addTask(t, "expired", time.Now().Add(-2*time.Hour), true, true, false, false)

	if n := f.sweep.Sweep(time.Now()); n != 1 {
		t.Fatalf("First sweep: expected 1, got %d", n)
	}
	if n := f.sweep.Sweep(time.Now()); n != 0 {
		t.Fatalf("Second sweep: expected 0, got %d", n)
	}
}

func TestStopWakesImmediately(t *testing.T) {
	f := setup(t, time.Hour)
	f.sweep.Start()

	start := time.Now()
	f.sweep.Stop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Stop took %v, should not wait out the sweep interval", elapsed)
	}

	// A second Stop is a no-op
	f.sweep.Stop()
}
