package codesign

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// ProfileExtension is the file extension of installed provisioning profiles
const ProfileExtension = ".mobileprovision"

// The app inside an archive carries the profile it was signed with
const embeddedProfilePattern = "Products/Applications/*.app/embedded" + ProfileExtension

var (
	// ErrManifestNotFound is returned when the archive holds no embedded profile
	ErrManifestNotFound = errors.New("embedded provisioning profile not found")

	// ErrIdentifierNotFound is returned when the embedded profile has no UUID
	ErrIdentifierNotFound = errors.New("profile identifier not found")

	// ErrProfileNotInstalled is returned when no installed profile matches the UUID
	ErrProfileNotInstalled = errors.New("provisioning profile not installed")

	// ErrProfileNameNotFound is returned when the Name value is absent or empty
	ErrProfileNameNotFound = errors.New("profile name not found")
)

// uuidPattern matches 8-4-4-4-12 hex groups
var uuidPattern = regexp.MustCompile(`[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}`)

var markupTag = regexp.MustCompile(`<[^>]*>`)

var xmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

const nameMarker = "<key>Name</key>"

// Identity is the signing identity an archive will be exported with
type Identity struct {
	UUID        string
	Name        string
	ProfilePath string

	// Profile is the structurally decoded profile, nil when decoding failed.
	// Name above comes from text scanning and does not depend on it.
	Profile *ProvisioningProfile
}

// FindEmbeddedProfile returns the path of the embedded.mobileprovision inside the archive
func FindEmbeddedProfile(archivePath string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(archivePath), embeddedProfilePattern)
	if err != nil {
		return "", fmt.Errorf("failed to search archive: %w", err)
	}
	for _, rel := range matches {
		path := filepath.Join(archivePath, filepath.FromSlash(rel))
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrManifestNotFound, archivePath)
}

// ExtractProfileIdentifier returns the UUID of the profile embedded in the archive
func ExtractProfileIdentifier(archivePath string) (string, error) {
	manifest, err := FindEmbeddedProfile(archivePath)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(manifest)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded profile: %w", err)
	}

	return ProfileIdentifier(data)
}

// ProfileIdentifier returns the first UUID-shaped string in data.
// The profile is scanned as raw bytes, the CMS envelope is not decoded.
func ProfileIdentifier(data []byte) (string, error) {
	match := uuidPattern.Find(data)
	if match == nil {
		return "", ErrIdentifierNotFound
	}

	id := string(match)
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentifierNotFound, err)
	}
	return id, nil
}

// InstalledProfilePath returns {profilesDir}/{id}.mobileprovision if that file exists
func InstalledProfilePath(profilesDir, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrProfileNotInstalled)
	}

	path := filepath.Join(profilesDir, id+ProfileExtension)
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrProfileNotInstalled, path)
		}
		return "", fmt.Errorf("failed to access profile: %w", err)
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrProfileNotInstalled, path)
	}
	return path, nil
}

// ProfileName extracts the display name from a profile's text.
//
// The value is taken from the first non-blank text following the
// "<key>Name</key>" marker, normally "<string>Name</string>" on the next
// line. Markup tags are removed, XML entities decoded and surrounding
// whitespace trimmed.
//
// Only whitespace is trimmed, not leading or trailing non-word characters.
// xcodebuild matches the profile by its exact name, so punctuation at either
// end is kept: "iOS Team Provisioning Profile: *" stays intact.
func ProfileName(data []byte) (string, error) {
	idx := bytes.Index(data, []byte(nameMarker))
	if idx < 0 {
		return "", fmt.Errorf("%w: %s marker missing", ErrProfileNameNotFound, nameMarker)
	}

	rest := string(data[idx+len(nameMarker):])
	var value string
	for _, line := range strings.Split(rest, "\n") {
		if strings.TrimSpace(line) != "" {
			value = line
			break
		}
	}

	// Only the element right after the marker belongs to it
	if end := strings.Index(value, "</string>"); end >= 0 {
		value = value[:end]
	}

	value = markupTag.ReplaceAllString(value, "")
	value = xmlEntities.Replace(value)
	value = strings.TrimSpace(value)

	if value == "" {
		return "", fmt.Errorf("%w: empty value", ErrProfileNameNotFound)
	}
	return value, nil
}

// LoadInstalledProfile resolves the installed profile for id and reads its name
func LoadInstalledProfile(profilesDir, id string) (*Identity, error) {
	path, err := InstalledProfilePath(profilesDir, id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provisioning profile: %w", err)
	}

	name, err := ProfileName(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	identity := &Identity{
		UUID:        id,
		Name:        name,
		ProfilePath: path,
	}
	if profile, err := ParseProvisioningProfile(data); err == nil {
		identity.Profile = profile
	}

	return identity, nil
}
