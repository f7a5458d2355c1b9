package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ErrToolFailed is returned when the export tool exits with a non-zero status
var ErrToolFailed = errors.New("export tool failed")

// Exporter runs the external tool that signs and packages an archive
type Exporter struct {
	Tool   string    // executable, "xcodebuild" by default
	Format string    // output format token, "ipa" by default
	Stderr io.Writer // receives the tool's error output, os.Stderr when nil
}

// NewExporter returns an Exporter for tool producing format
func NewExporter(tool, format string) *Exporter {
	return &Exporter{Tool: tool, Format: format}
}

// Args returns the tool's command line for one export
func (e *Exporter) Args(archivePath, exportPath, profileName string) []string {
	return []string{
		"-exportArchive",
		"-archivePath", archivePath,
		"-exportPath", exportPath,
		"-exportFormat", e.format(),
		"-exportProvisioningProfile", profileName,
	}
}

// Export runs the tool and waits for it. Standard output is discarded,
// error output is passed through.
func (e *Exporter) Export(ctx context.Context, archivePath, exportPath, profileName string) error {
	tool := e.Tool
	if tool == "" {
		tool = "xcodebuild"
	}

	cmd := exec.CommandContext(ctx, tool, e.Args(archivePath, exportPath, profileName)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("export interrupted: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with status %d", ErrToolFailed, tool, exitErr.ExitCode())
		}
		return fmt.Errorf("failed to run %s: %w", tool, err)
	}

	return nil
}

func (e *Exporter) format() string {
	if e.Format == "" {
		return "ipa"
	}
	return e.Format
}
