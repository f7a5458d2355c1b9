// Package config resolves the xcexport run configuration once at startup.
//
// Values are layered, later sources winning: built-in defaults, an optional
// TOML config file, XCEXPORT_* environment variables and finally command-line
// flags. The resulting Config is passed by value into every component and is
// never modified after Load returns.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "XCEXPORT"

// Config keys, shared by the config file, the environment and Overrides
const (
	KeyAutoAccept   = "auto_accept"
	KeyNumArchives  = "num_archives"
	KeyArchive      = "archive"
	KeyArchivesDir  = "archives_dir"
	KeyProfilesDir  = "profiles_dir"
	KeyExportDir    = "export_dir"
	KeyExportTool   = "tool"
	KeyExportFormat = "export_format"
	KeyNoColor      = "no_color"
)

// Config holds every setting of a run
type Config struct {
	AutoAccept      bool   // answer all yes/no prompts with "y"
	NumArchives     int    // number of archives offered for selection
	ArchiveOverride string // skip discovery and use this archive
	ArchivesDir     string // root scanned for *.xcarchive bundles
	ProfilesDir     string // installed provisioning profiles
	ExportDir       string // where the .ipa is written
	ExportTool      string // external exporter executable
	ExportFormat    string // output format token handed to the exporter
	NoColor         bool
}

// Defaults returns the built-in configuration, rooted at home
func Defaults(home string) Config {
	return Config{
		NumArchives:  10,
		ArchivesDir:  filepath.Join(home, "Library", "Developer", "Xcode", "Archives"),
		ProfilesDir:  filepath.Join(home, "Library", "MobileDevice", "Provisioning Profiles"),
		ExportDir:    filepath.Join(home, "Desktop"),
		ExportTool:   "xcodebuild",
		ExportFormat: "ipa",
	}
}

// Options controls where Load looks for settings
type Options struct {
	// ConfigFile is an explicit config file; it must exist when set.
	// When empty, ~/.config/xcexport/config.toml is read if present.
	ConfigFile string

	// Overrides holds flag values keyed by the Key* constants. Only keys
	// present in the map override lower layers.
	Overrides map[string]interface{}

	// Home overrides the user's home directory (tests)
	Home string
}

// Load builds the Config from defaults, config file, environment and overrides
func Load(opts Options) (Config, error) {
	home := opts.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("failed to determine home directory: %w", err)
		}
	}

	v := newViper(Defaults(home))

	if opts.ConfigFile != "" {
		v.SetConfigFile(expandHome(opts.ConfigFile, home))
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "xcexport"))
		v.SetConfigName("config")
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	cfg := Config{
		AutoAccept:      v.GetBool(KeyAutoAccept),
		NumArchives:     v.GetInt(KeyNumArchives),
		ArchiveOverride: expandHome(v.GetString(KeyArchive), home),
		ArchivesDir:     expandHome(v.GetString(KeyArchivesDir), home),
		ProfilesDir:     expandHome(v.GetString(KeyProfilesDir), home),
		ExportDir:       expandHome(v.GetString(KeyExportDir), home),
		ExportTool:      v.GetString(KeyExportTool),
		ExportFormat:    v.GetString(KeyExportFormat),
		NoColor:         v.GetBool(KeyNoColor),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted away
func (c Config) Validate() error {
	if c.NumArchives < 1 {
		return fmt.Errorf("number of archives to show must be at least 1, got %d", c.NumArchives)
	}
	if c.ArchiveOverride == "" && c.ArchivesDir == "" {
		return fmt.Errorf("archives directory is required")
	}
	if c.ProfilesDir == "" {
		return fmt.Errorf("provisioning profiles directory is required")
	}
	if c.ExportDir == "" {
		return fmt.Errorf("export directory is required")
	}
	if c.ExportTool == "" {
		return fmt.Errorf("export tool is required")
	}
	return nil
}

func newViper(defaults Config) *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAutoAccept, defaults.AutoAccept)
	v.SetDefault(KeyNumArchives, defaults.NumArchives)
	v.SetDefault(KeyArchive, defaults.ArchiveOverride)
	v.SetDefault(KeyArchivesDir, defaults.ArchivesDir)
	v.SetDefault(KeyProfilesDir, defaults.ProfilesDir)
	v.SetDefault(KeyExportDir, defaults.ExportDir)
	v.SetDefault(KeyExportTool, defaults.ExportTool)
	v.SetDefault(KeyExportFormat, defaults.ExportFormat)
	v.SetDefault(KeyNoColor, defaults.NoColor)

	// XCEXPORT_ARCHIVES_DIR -> archives_dir
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// expandHome replaces a leading ~ with home
func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
