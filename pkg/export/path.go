// Package export decides where an archive is exported to and runs the
// external exporter.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluedeke/go-xcexport/pkg/console"
)

// Extension of the exported package
const Extension = ".ipa"

// ErrConflict is returned when the destination exists and the user keeps it
var ErrConflict = errors.New("export destination already exists")

// BaseName derives the package name from an archive path: the file name
// without extension, cut at the first whitespace.
//
// Xcode names archives "<Scheme> <date> <time>.xcarchive", so this yields the
// scheme. Schemes containing spaces are truncated to their first word.
func BaseName(archivePath string) string {
	name := filepath.Base(archivePath)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}

// DerivePath returns {exportRoot}/{BaseName}.ipa. It does not touch the filesystem.
func DerivePath(archivePath, exportRoot string) string {
	return filepath.Join(exportRoot, BaseName(archivePath)+Extension)
}

// ResolvePath returns the destination for archivePath, making sure nothing
// exists there. An existing file or directory is removed only after the user
// agrees; declining returns ErrConflict and leaves the filesystem untouched.
// A canceled ctx also leaves it untouched, even after the user agreed.
func ResolvePath(ctx context.Context, archivePath, exportRoot string, msg *console.Messenger, prompt *console.Prompter) (string, error) {
	path := DerivePath(archivePath, exportRoot)

	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("failed to check export path: %w", err)
	}

	msg.Warnf("%s already exists", path)
	answer, err := prompt.YesNo(ctx, fmt.Sprintf("Delete %s", path), "n")
	if err != nil {
		return "", err
	}
	if answer != "y" {
		return "", fmt.Errorf("%w: %s", ErrConflict, path)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.RemoveAll(path); err != nil {
		return "", fmt.Errorf("failed to remove existing export: %w", err)
	}
	msg.Infof("Deleted %s", path)

	return path, nil
}
