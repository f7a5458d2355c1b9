package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"howett.net/plist"
)

// ApplicationProperties is the ApplicationProperties dictionary of an archive's Info.plist
type ApplicationProperties struct {
	ApplicationPath  string   `plist:"ApplicationPath"`
	BundleIdentifier string   `plist:"CFBundleIdentifier"`
	ShortVersion     string   `plist:"CFBundleShortVersionString"`
	BundleVersion    string   `plist:"CFBundleVersion"`
	SigningIdentity  string   `plist:"SigningIdentity"`
	Team             string   `plist:"Team"`
	Architectures    []string `plist:"Architectures"`
}

// Info represents the Info.plist at the root of an .xcarchive bundle
type Info struct {
	Path                  string                `plist:"-"`
	Name                  string                `plist:"Name"`
	SchemeName            string                `plist:"SchemeName"`
	CreationDate          time.Time             `plist:"CreationDate"`
	ArchiveVersion        int                   `plist:"ArchiveVersion"`
	ApplicationProperties ApplicationProperties `plist:"ApplicationProperties"`
}

// ReadInfo parses the Info.plist of the archive at archivePath
func ReadInfo(archivePath string) (*Info, error) {
	data, err := os.ReadFile(filepath.Join(archivePath, "Info.plist"))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive Info.plist: %w", err)
	}

	var info Info
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse archive Info.plist: %w", err)
	}
	info.Path = archivePath

	return &info, nil
}

// Version returns "short (build)", or whichever of the two is known
func (i *Info) Version() string {
	short := i.ApplicationProperties.ShortVersion
	build := i.ApplicationProperties.BundleVersion
	switch {
	case short != "" && build != "":
		return fmt.Sprintf("%s (%s)", short, build)
	case short != "":
		return short
	default:
		return build
	}
}

// AppPath returns the .app bundle inside the archive.
// ApplicationPath is relative to Products/; when it is missing the first
// .app under Products/Applications is used.
func (i *Info) AppPath() (string, error) {
	return FindAppBundle(i.Path, i.ApplicationProperties.ApplicationPath)
}

// FindAppBundle locates the .app bundle of the archive at archivePath.
// appRelPath is the ApplicationPath from the archive's Info.plist and may be empty.
func FindAppBundle(archivePath, appRelPath string) (string, error) {
	productsDir := filepath.Join(archivePath, "Products")

	if appRelPath != "" {
		appPath := filepath.Join(productsDir, filepath.FromSlash(appRelPath))
		if fi, err := os.Stat(appPath); err == nil && fi.IsDir() {
			return appPath, nil
		}
	}

	appsDir := filepath.Join(productsDir, "Applications")
	entries, err := os.ReadDir(appsDir)
	if err != nil {
		return "", fmt.Errorf("failed to read Applications directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() && strings.HasSuffix(entry.Name(), ".app") {
			return filepath.Join(appsDir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("no .app bundle found in %s", appsDir)
}
