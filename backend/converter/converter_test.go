package converter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeEngineScript installs a stand-in for the soffice binary. The script
// sees the same argument layout the real engine does:
// $5 target format, $7 output dir, $8 input path.
func writeEngineScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soffice")
	script := "#!/bin/sh\nfmt=\"$5\"\noutdir=\"$7\"\ninput=\"$8\"\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write engine script: %v", err)
	}
	return path
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("legacy document"), 0644); err != nil {
		t.Fatalf("Failed to write input file: %v", err)
	}
	return path
}

func TestConvertSuccess(t *testing.T) {
	engine := NewEngine(1, writeEngineScript(t, `
stem=$(basename "$input")
stem="${stem%.*}"
echo converted > "$outdir/$stem.$fmt"
exit 0`), time.Minute)

	dir := t.TempDir()
	input := writeInput(t, dir, "report.doc")
	outDir := filepath.Join(dir, "out")

	path, err := engine.Convert(context.Background(), input, outDir, "docx")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	want := filepath.Join(outDir, "report.docx")
	if path != want {
		t.Errorf("Expected output path %q, got %q", want, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Output file not present: %v", err)
	}
}

func TestConvertNonZeroExit(t *testing.T) {
	engine := NewEngine(1, writeEngineScript(t, `
echo "source file could not be loaded" >&2
exit 1`), time.Minute)

	dir := t.TempDir()
	input := writeInput(t, dir, "broken.doc")

	_, err := engine.Convert(context.Background(), input, filepath.Join(dir, "out"), "docx")
	if err == nil {
		t.Fatal("Expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "exited with code 1") {
		t.Errorf("Error should name the exit code, got: %v", err)
	}
	if !strings.Contains(err.Error(), "source file could not be loaded") {
		t.Errorf("Error should carry the captured stderr, got: %v", err)
	}
}

func TestConvertMissingOutput(t *testing.T) {
	// Zero exit but nothing written: not success.
	engine := NewEngine(1, writeEngineScript(t, "exit 0"), time.Minute)

	dir := t.TempDir()
	input := writeInput(t, dir, "report.doc")

	_, err := engine.Convert(context.Background(), input, filepath.Join(dir, "out"), "docx")
	if err == nil {
		t.Fatal("Expected error when output file is missing")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("Error should name the missing output, got: %v", err)
	}
}

func TestConvertEngineNotFound(t *testing.T) {
	engine := NewEngine(1, filepath.Join(t.TempDir(), "no-such-binary"), time.Minute)

	dir := t.TempDir()
	input := writeInput(t, dir, "report.doc")

	_, err := engine.Convert(context.Background(), input, filepath.Join(dir, "out"), "docx")
	if err == nil {
		t.Fatal("Expected error for missing engine binary")
	}
	if !strings.Contains(err.Error(), "failed to start engine") {
		t.Errorf("Error should name the spawn failure, got: %v", err)
	}
}

func TestConvertTimeout(t *testing.T) {
	engine := NewEngine(1, writeEngineScript(t, "sleep 10"), 100*time.Millisecond)

	dir := t.TempDir()
	input := writeInput(t, dir, "report.doc")

	start := time.Now()
	_, err := engine.Convert(context.Background(), input, filepath.Join(dir, "out"), "docx")
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Error should report the timeout, got: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Convert did not honor the timeout")
	}
}

func TestClassifyRunError(t *testing.T) {
	engine := NewEngine(1, "soffice", 100*time.Millisecond)
	var stdout, stderr bytes.Buffer

	// A clean run is a success even when the deadline elapsed while it ran.
	if err := engine.classifyRunError(nil, context.DeadlineExceeded, &stdout, &stderr); err != nil {
		t.Errorf("Clean run at the deadline must not be a timeout, got: %v", err)
	}

	// A failed run under an elapsed deadline is a timeout.
	err := engine.classifyRunError(errors.New("signal: killed"), context.DeadlineExceeded, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Expected timeout classification, got: %v", err)
	}

	// Without a deadline, an unrecognized failure is a spawn failure.
	err = engine.classifyRunError(errors.New("fork/exec: permission denied"), nil, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "failed to start engine") {
		t.Errorf("Expected spawn failure classification, got: %v", err)
	}
}

func TestEnginesUseDistinctProfiles(t *testing.T) {
	a := NewEngine(1, "soffice", time.Minute)
	b := NewEngine(2, "soffice", time.Minute)

	if a.profileDir == b.profileDir {
		t.Error("Engines must not share a user profile directory")
	}
}
