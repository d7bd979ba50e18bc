package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Engine invokes the external LibreOffice binary to convert one document at a
// time. Each engine owns a private soffice user profile directory so that
// concurrent instances do not trample each other's lock files.
type Engine struct {
	id          int
	sofficePath string
	profileDir  string
	timeout     time.Duration
}

// NewEngine creates a conversion engine. The profile directory is derived
// from the process ID and the engine ID, matching one engine per pool worker.
func NewEngine(id int, sofficePath string, timeout time.Duration) *Engine {
	return &Engine{
		id:          id,
		sofficePath: sofficePath,
		profileDir:  filepath.Join(os.TempDir(), fmt.Sprintf("soffice_profile_%d_%d", os.Getpid(), id)),
		timeout:     timeout,
	}
}

// ID returns the engine's numeric identifier
func (e *Engine) ID() int {
	return e.id
}

// Convert runs the external engine on inputPath, directing output into
// outputDir, and returns the converted file's path. Success requires both a
// zero exit code and the expected output file being present afterward.
func (e *Engine) Convert(ctx context.Context, inputPath, outputDir, targetFormat string) (string, error) {
	if err := os.MkdirAll(e.profileDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.sofficePath,
		"-env:UserInstallation=file://"+e.profileDir,
		"--headless",
		"--nofirststartwizard",
		"--convert-to", targetFormat,
		"--outdir", outputDir,
		inputPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := e.classifyRunError(cmd.Run(), ctx.Err(), &stdout, &stderr); err != nil {
		return "", err
	}

	// A zero exit code alone is not proof of success: soffice reports
	// success for some unconvertible inputs without writing anything.
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, stem+"."+targetFormat)
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("engine exited cleanly but output file %s is missing", filepath.Base(outputPath))
	}

	return outputPath, nil
}

// classifyRunError turns the raw run outcome into a caller-facing error. A
// run that finished cleanly is a success even if the deadline elapsed in the
// meantime; the deadline only explains a failed run.
func (e *Engine) classifyRunError(runErr, ctxErr error, stdout, stderr *bytes.Buffer) error {
	if runErr == nil {
		return nil
	}
	if ctxErr == context.DeadlineExceeded {
		return fmt.Errorf("conversion timed out after %v", e.timeout)
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		return fmt.Errorf("engine exited with code %d: %s", exitErr.ExitCode(), detail)
	}
	return fmt.Errorf("failed to start engine: %w", runErr)
}
