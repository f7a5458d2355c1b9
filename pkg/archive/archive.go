// Package archive discovers .xcarchive bundles and lets the user pick one.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aluedeke/go-xcexport/pkg/console"
	"github.com/bmatcuk/doublestar/v4"
)

// Suffix is the directory suffix of an archive bundle
const Suffix = ".xcarchive"

// Xcode stores archives as <root>/<yyyy-mm-dd>/<Name date time>.xcarchive
const discoveryPattern = "*/*" + Suffix

var (
	// ErrNoArchives is returned when discovery finds nothing to select from
	ErrNoArchives = errors.New("no archives found")

	// ErrNotFound is returned when the selected archive is not an existing directory
	ErrNotFound = errors.New("archive not found")
)

// Candidate is one discovered archive bundle
type Candidate struct {
	Path string // absolute path to the .xcarchive directory
	Rel  string // path relative to the archives root, used for ordering
	Info *Info  // nil when Info.plist could not be read
}

// Name returns the bundle's directory name
func (c Candidate) Name() string {
	return filepath.Base(c.Path)
}

// Label is the menu text for the candidate
func (c Candidate) Label() string {
	if c.Info == nil || c.Info.ApplicationProperties.BundleIdentifier == "" {
		return c.Name()
	}
	label := fmt.Sprintf("%s  (%s", c.Name(), c.Info.ApplicationProperties.BundleIdentifier)
	if v := c.Info.Version(); v != "" {
		label += " " + v
	}
	return label + ")"
}

// Discover returns at most limit archives found two levels below root,
// ordered by descending relative path. Xcode's date-stamped naming makes
// that newest first.
func Discover(root string, limit int) ([]Candidate, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access archives directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("archives directory %s is not a directory", root)
	}

	matches, err := doublestar.Glob(os.DirFS(root), discoveryPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan archives directory: %w", err)
	}

	var candidates []Candidate
	for _, rel := range matches {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
			continue
		}
		candidates = append(candidates, Candidate{Path: path, Rel: rel})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Rel > candidates[j].Rel
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	// Metadata only decorates the menu, a broken Info.plist is not fatal
	for i := range candidates {
		if info, err := ReadInfo(candidates[i].Path); err == nil {
			candidates[i].Info = info
		}
	}

	return candidates, nil
}

// Choose lists candidates as a 1-based menu and asks for an index until a
// valid one is entered
func Choose(ctx context.Context, candidates []Candidate, msg *console.Messenger, prompt *console.Prompter) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, ErrNoArchives
	}

	for i, c := range candidates {
		msg.Infof("%d) %s", i+1, c.Label())
	}

	question := fmt.Sprintf("Select an archive [1-%d]", len(candidates))
	for {
		answer, err := prompt.Line(ctx, question, "")
		if err != nil {
			return Candidate{}, err
		}

		index, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil || index < 1 || index > len(candidates) {
			msg.Warnf("Invalid selection %q, enter a number between 1 and %d", answer, len(candidates))
			continue
		}

		return candidates[index-1], nil
	}
}

// Select resolves the archive to export: override when set, otherwise the
// user's pick among the newest limit archives under root
func Select(ctx context.Context, root string, limit int, override string, msg *console.Messenger, prompt *console.Prompter) (string, error) {
	if override != "" {
		msg.Infof("Using archive override %s", override)
		return override, nil
	}

	msg.Infof("Looking for archives in %s", root)
	candidates, err := Discover(root, limit)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoArchives, root)
	}

	chosen, err := Choose(ctx, candidates, msg, prompt)
	if err != nil {
		return "", err
	}
	return chosen.Path, nil
}

// Validate checks that path names an existing archive directory
func Validate(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no archive selected", ErrNotFound)
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to access archive: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNotFound, path)
	}
	return nil
}
