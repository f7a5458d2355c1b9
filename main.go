package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/aluedeke/go-xcexport/pkg/archive"
	"github.com/aluedeke/go-xcexport/pkg/codesign"
	"github.com/aluedeke/go-xcexport/pkg/config"
	"github.com/aluedeke/go-xcexport/pkg/console"
	"github.com/aluedeke/go-xcexport/pkg/export"
	"github.com/aluedeke/go-xcexport/pkg/workflow"
	"github.com/docopt/docopt-go"
)

const version = "1.0.0"

const usage = `xcexport - Xcode Archive Export Tool

Interactively exports an Xcode archive as an .ipa, signed with the provisioning
profile the archive was built with.

Usage:
  xcexport [export] [--yes] [--archive=<path>] [--count=<n>] [options]
  xcexport list [--count=<n>] [options]
  xcexport info --archive=<path> [options]
  xcexport -h | --help
  xcexport --version

Commands:
  export    Select an archive and export it (default)
  list      List the most recent archives
  info      Show archive, profile and executable details

Options:
  -y --yes                Answer yes to every confirmation, including deleting an existing export
  --archive=<path>        Use this .xcarchive instead of choosing one (or XCEXPORT_ARCHIVE)
  --count=<n>             Number of archives to offer (or XCEXPORT_NUM_ARCHIVES, default 10)
  --archives-dir=<dir>    Where Xcode stores archives (or XCEXPORT_ARCHIVES_DIR)
  --profiles-dir=<dir>    Installed provisioning profiles (or XCEXPORT_PROFILES_DIR)
  --export-dir=<dir>      Where the .ipa is written (or XCEXPORT_EXPORT_DIR)
  --tool=<path>           Export tool to run (or XCEXPORT_TOOL, default xcodebuild)
  --config=<file>         Config file (default ~/.config/xcexport/config.toml)
  --no-color              Disable colored output
  -h --help               Show this help message
  --version               Show version

Environment Variables:
  XCEXPORT_AUTO_ACCEPT    Same as --yes when set to true
  XCEXPORT_ARCHIVE        Archive override (overridden by --archive)
  XCEXPORT_NUM_ARCHIVES   Number of archives to offer (overridden by --count)
  XCEXPORT_ARCHIVES_DIR   Archives root (overridden by --archives-dir)
  XCEXPORT_PROFILES_DIR   Profiles root (overridden by --profiles-dir)
  XCEXPORT_EXPORT_DIR     Export root (overridden by --export-dir)
  XCEXPORT_TOOL           Export tool (overridden by --tool)

Examples:
  # Pick one of the last 10 archives and export it to ~/Desktop
  xcexport

  # Export a specific archive without any questions
  xcexport --yes --archive="~/Library/Developer/Xcode/Archives/2024-03-01/Demo 01-03-2024, 09.30.xcarchive"

  # Show the 5 most recent archives
  xcexport list --count=5

  # Check which profile an archive needs and whether it is installed
  xcexport info --archive=Demo.xcarchive
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	msg := console.NewMessenger(os.Stdout)
	if cfg.NoColor {
		msg.SetColor(false)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		// A second Ctrl-C kills the process
		<-ctx.Done()
		stop()
	}()

	if list, _ := opts.Bool("list"); list {
		err = runList(cfg, msg)
	} else if info, _ := opts.Bool("info"); info {
		err = runInfo(cfg, msg)
	} else {
		err = runExport(ctx, cfg, msg)
	}

	if err != nil {
		reportError(msg, err)
		stop()
		os.Exit(1)
	}
}

// loadConfig maps the docopt flags onto config overrides
func loadConfig(opts docopt.Opts) (config.Config, error) {
	overrides := map[string]interface{}{}

	if yes, _ := opts.Bool("--yes"); yes {
		overrides[config.KeyAutoAccept] = true
	}
	if noColor, _ := opts.Bool("--no-color"); noColor {
		overrides[config.KeyNoColor] = true
	}
	if count, _ := opts.String("--count"); count != "" {
		n, err := strconv.Atoi(count)
		if err != nil {
			return config.Config{}, fmt.Errorf("--count must be a number, got %q", count)
		}
		overrides[config.KeyNumArchives] = n
	}

	stringFlags := map[string]string{
		"--archive":      config.KeyArchive,
		"--archives-dir": config.KeyArchivesDir,
		"--profiles-dir": config.KeyProfilesDir,
		"--export-dir":   config.KeyExportDir,
		"--tool":         config.KeyExportTool,
	}
	for flag, key := range stringFlags {
		if value, _ := opts.String(flag); value != "" {
			overrides[key] = value
		}
	}

	configFile, _ := opts.String("--config")
	return config.Load(config.Options{ConfigFile: configFile, Overrides: overrides})
}

func runExport(ctx context.Context, cfg config.Config, msg *console.Messenger) error {
	prompt := console.NewPrompter(os.Stdin, os.Stdout, msg, cfg.AutoAccept)
	exporter := export.NewExporter(cfg.ExportTool, cfg.ExportFormat)

	_, err := workflow.New(cfg, msg, prompt, exporter).Run(ctx)
	return err
}

func runList(cfg config.Config, msg *console.Messenger) error {
	candidates, err := archive.Discover(cfg.ArchivesDir, cfg.NumArchives)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w in %s", archive.ErrNoArchives, cfg.ArchivesDir)
	}

	archive.PrintTable(msg.Writer(), candidates)
	return nil
}

func runInfo(cfg config.Config, msg *console.Messenger) error {
	archivePath := cfg.ArchiveOverride
	if err := archive.Validate(archivePath); err != nil {
		return err
	}

	fmt.Println("Archive Information")
	fmt.Println("===================")
	fmt.Printf("Path:           %s\n", archivePath)
	fmt.Printf("Export Name:    %s\n", export.BaseName(archivePath)+export.Extension)

	if info, err := archive.ReadInfo(archivePath); err == nil {
		fmt.Printf("Name:           %s\n", info.Name)
		fmt.Printf("Scheme:         %s\n", info.SchemeName)
		fmt.Printf("Bundle ID:      %s\n", bundleID(info))
		fmt.Printf("Version:        %s\n", info.Version())
		fmt.Printf("Team:           %s\n", info.ApplicationProperties.Team)
		if !info.CreationDate.IsZero() {
			fmt.Printf("Created:        %s\n", info.CreationDate.Local().Format("2006-01-02 15:04:05"))
		}
		showExecutableInfo(info)
	} else {
		msg.Warnf("No archive metadata: %v", err)
	}

	embedded, err := codesign.FindEmbeddedProfile(archivePath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(embedded)
	if err != nil {
		return fmt.Errorf("failed to read embedded profile: %w", err)
	}
	id, err := codesign.ProfileIdentifier(data)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Embedded Provisioning Profile")
	fmt.Println("-----------------------------")
	fmt.Printf("UUID:           %s\n", id)
	if profile, err := codesign.ParseProvisioningProfile(data); err == nil {
		showProfile(profile)
	} else if name, err := codesign.ProfileName(data); err == nil {
		fmt.Printf("Name:           %s\n", name)
	}

	identity, err := codesign.LoadInstalledProfile(cfg.ProfilesDir, id)
	if err != nil {
		if errors.Is(err, codesign.ErrProfileNotInstalled) {
			fmt.Printf("Installed:      no (expected in %s)\n", cfg.ProfilesDir)
			return nil
		}
		return err
	}
	fmt.Printf("Installed:      %s\n", identity.ProfilePath)
	fmt.Printf("Export Profile: %s\n", identity.Name)
	return nil
}

// bundleID prefers the archive Info.plist and falls back to the app's own
func bundleID(info *archive.Info) string {
	if id := info.ApplicationProperties.BundleIdentifier; id != "" {
		return id
	}
	appPath, err := info.AppPath()
	if err != nil {
		return ""
	}
	id, _ := codesign.GetAppBundleID(appPath)
	return id
}

func showExecutableInfo(info *archive.Info) {
	appPath, err := info.AppPath()
	if err != nil {
		return
	}
	execPath, err := codesign.GetAppExecutablePath(appPath)
	if err != nil {
		return
	}
	bin, err := codesign.InspectBinary(execPath)
	if err != nil {
		return
	}
	fmt.Printf("Executable:     %s\n", execPath)
	fmt.Printf("Architectures:  %s\n", strings.Join(bin.Architectures, ", "))
	fmt.Printf("Signed:         %v\n", bin.Signed)
}

func showProfile(profile *codesign.ProvisioningProfile) {
	fmt.Printf("Name:           %s\n", profile.Name)
	fmt.Printf("Type:           %s\n", profile.Kind())
	fmt.Printf("Team ID:        %s\n", profile.GetTeamID())
	fmt.Printf("App ID:         %s\n", profile.GetApplicationIdentifier())
	fmt.Printf("Expiration:     %s\n", profile.ExpirationDate.Format("2006-01-02"))
	fmt.Printf("Expired:        %v\n", profile.IsExpired())
	if certs, err := profile.GetCertificates(); err == nil {
		fmt.Printf("Certificates:   %d\n", len(certs))
		for i, cert := range certs {
			fmt.Printf("  [%d] %s\n", i+1, cert.Subject.CommonName)
			fmt.Printf("      Expires: %s\n", cert.NotAfter.Format("2006-01-02"))
		}
	}
	if len(profile.ProvisionedDevices) > 0 {
		fmt.Printf("Devices:        %d\n", len(profile.ProvisionedDevices))
	}
}

// reportError prints the failure and, for step errors, what to do about it
func reportError(msg *console.Messenger, err error) {
	if errors.Is(err, context.Canceled) {
		msg.Warn("Interrupted")
		return
	}

	var stepErr *workflow.StepError
	if errors.As(err, &stepErr) {
		if errors.Is(err, workflow.ErrDeclined) {
			msg.Warn("Aborted, nothing was exported")
			return
		}
		msg.Error(fmt.Sprintf("%s step failed: %v", stepErr.Step, stepErr.Err))
		if stepErr.Hint != "" {
			msg.Warn(stepErr.Hint)
		}
		return
	}
	msg.Error(err.Error())
}
