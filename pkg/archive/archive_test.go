package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluedeke/go-xcexport/pkg/console"
	"howett.net/plist"
)

// makeArchive creates <root>/<rel> as an archive bundle, with an Info.plist when info is non-nil
func makeArchive(t *testing.T, root, rel string, info *Info) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Join(path, "Products", "Applications", "App.app"), 0755); err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	if info != nil {
		data, err := plist.Marshal(info, plist.XMLFormat)
		if err != nil {
			t.Fatalf("Failed to marshal Info.plist: %v", err)
		}
		if err := os.WriteFile(filepath.Join(path, "Info.plist"), data, 0644); err != nil {
			t.Fatalf("Failed to write Info.plist: %v", err)
		}
	}
	return path
}

func newConsole(input string) (*console.Messenger, *console.Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	msg := console.NewMessenger(&out)
	msg.SetColor(false)
	return msg, console.NewPrompter(strings.NewReader(input), &out, msg, false), &out
}

func TestDiscoverOrderAndLimit(t *testing.T) {
	root := t.TempDir()
	makeArchive(t, root, "2024-01-01/App1 1-1-24 10.00.xcarchive", nil)
	makeArchive(t, root, "2024-01-02/App2 1-2-24 09.00.xcarchive", nil)
	makeArchive(t, root, "2024-01-03/App3 1-3-24 08.00.xcarchive", nil)

	// Wrong depth and wrong suffix are ignored
	makeArchive(t, root, "Top.xcarchive", nil)
	makeArchive(t, root, "2024-01-03/nested/Deep.xcarchive", nil)
	if err := os.WriteFile(filepath.Join(root, "2024-01-03", "File.xcarchive"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "2024-01-03", "Other.app"), 0755); err != nil {
		t.Fatal(err)
	}

	all, err := Discover(root, 10)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	var names []string
	for _, c := range all {
		names = append(names, c.Name())
	}
	expected := []string{"App3 1-3-24 08.00.xcarchive", "App2 1-2-24 09.00.xcarchive", "App1 1-1-24 10.00.xcarchive"}
	if strings.Join(names, "|") != strings.Join(expected, "|") {
		t.Errorf("Expected %v, got %v", expected, names)
	}

	limited, err := Discover(root, 2)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Name() != expected[0] || limited[1].Name() != expected[1] {
		t.Errorf("Expected first two newest archives, got %v", limited)
	}
}

func TestDiscoverReadsInfo(t *testing.T) {
	root := t.TempDir()
	makeArchive(t, root, "2024-05-01/Demo.xcarchive", &Info{
		Name:         "Demo",
		CreationDate: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ApplicationProperties: ApplicationProperties{
			ApplicationPath:  "Applications/App.app",
			BundleIdentifier: "com.example.demo",
			ShortVersion:     "1.2",
			BundleVersion:    "42",
		},
	})

	candidates, err := Discover(root, 10)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Info == nil {
		t.Fatalf("Expected one candidate with metadata, got %+v", candidates)
	}
	if got := candidates[0].Label(); got != "Demo.xcarchive  (com.example.demo 1.2 (42))" {
		t.Errorf("Unexpected label: %s", got)
	}

	appPath, err := candidates[0].Info.AppPath()
	if err != nil {
		t.Fatalf("AppPath failed: %v", err)
	}
	if filepath.Base(appPath) != "App.app" {
		t.Errorf("Unexpected app path: %s", appPath)
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "missing"), 10); err == nil {
		t.Fatal("Expected error for missing archives directory")
	}
}

func TestChoose(t *testing.T) {
	root := t.TempDir()
	older := makeArchive(t, root, "2024-01-01/App1.xcarchive", nil)
	makeArchive(t, root, "2024-01-02/App2.xcarchive", nil)

	candidates, err := Discover(root, 10)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	msg, prompt, out := newConsole("2\n")
	chosen, err := Choose(context.Background(), candidates, msg, prompt)
	if err != nil {
		t.Fatalf("Choose failed: %v", err)
	}
	if chosen.Path != older {
		t.Errorf("Expected %s, got %s", older, chosen.Path)
	}
	if !strings.Contains(out.String(), "1) App2.xcarchive") || !strings.Contains(out.String(), "2) App1.xcarchive") {
		t.Errorf("Menu not rendered newest first:\n%s", out.String())
	}
}

func TestChooseRejectsOutOfRange(t *testing.T) {
	candidates := []Candidate{{Path: "/archives/2024-01-02/App2.xcarchive"}}

	msg, prompt, out := newConsole("2\n\nabc\n0\n1\n")
	chosen, err := Choose(context.Background(), candidates, msg, prompt)
	if err != nil {
		t.Fatalf("Choose failed: %v", err)
	}
	if chosen.Path != candidates[0].Path {
		t.Errorf("Expected %s, got %s", candidates[0].Path, chosen.Path)
	}
	if n := strings.Count(out.String(), "[WARNING]"); n != 4 {
		t.Errorf("Expected 4 warnings, got %d:\n%s", n, out.String())
	}
}

func TestChooseInputClosed(t *testing.T) {
	candidates := []Candidate{{Path: "/a/b/App.xcarchive"}}
	msg, prompt, _ := newConsole("9\n")
	if _, err := Choose(context.Background(), candidates, msg, prompt); !errors.Is(err, console.ErrInputClosed) {
		t.Errorf("Expected ErrInputClosed, got %v", err)
	}
}

func TestChooseCanceled(t *testing.T) {
	candidates := []Candidate{{Path: "/a/b/App.xcarchive"}}
	msg, prompt, _ := newConsole("1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Choose(ctx, candidates, msg, prompt); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSelectEmpty(t *testing.T) {
	msg, prompt, _ := newConsole("")
	_, err := Select(context.Background(), t.TempDir(), 10, "", msg, prompt)
	if !errors.Is(err, ErrNoArchives) {
		t.Errorf("Expected ErrNoArchives, got %v", err)
	}
}

func TestSelectOverride(t *testing.T) {
	msg, prompt, _ := newConsole("")
	got, err := Select(context.Background(), "/nonexistent", 10, "/some/App.xcarchive", msg, prompt)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if got != "/some/App.xcarchive" {
		t.Errorf("Expected override to be returned unchanged, got %s", got)
	}
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	dir := makeArchive(t, root, "d/App.xcarchive", nil)
	file := filepath.Join(root, "file.xcarchive")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := Validate(dir); err != nil {
		t.Errorf("Expected valid archive, got %v", err)
	}
	for _, path := range []string{"", file, filepath.Join(root, "missing.xcarchive")} {
		if err := Validate(path); !errors.Is(err, ErrNotFound) {
			t.Errorf("Validate(%q): expected ErrNotFound, got %v", path, err)
		}
	}
}

func TestFindAppBundleFallback(t *testing.T) {
	root := t.TempDir()
	path := makeArchive(t, root, "d/App.xcarchive", nil)

	appPath, err := FindAppBundle(path, "Applications/Missing.app")
	if err != nil {
		t.Fatalf("FindAppBundle failed: %v", err)
	}
	if appPath != filepath.Join(path, "Products", "Applications", "App.app") {
		t.Errorf("Unexpected app path: %s", appPath)
	}

	if _, err := FindAppBundle(t.TempDir(), ""); err == nil {
		t.Error("Expected error when Products is missing")
	}
}

func TestPrintTable(t *testing.T) {
	candidates := []Candidate{
		{Path: "/a/2024-01-02/App2.xcarchive", Info: &Info{
			ApplicationProperties: ApplicationProperties{BundleIdentifier: "com.example.two", ShortVersion: "2.0"},
		}},
		{Path: "/a/2024-01-01/App1.xcarchive"},
	}

	var buf bytes.Buffer
	PrintTable(&buf, candidates)

	out := buf.String()
	for _, want := range []string{"App2.xcarchive", "com.example.two", "2.0", "App1.xcarchive"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table missing %q:\n%s", want, out)
		}
	}
}
