// Package workflow runs the four export steps in order: pick an archive,
// resolve its provisioning profile, clear the export path and hand everything
// to the export tool. Any failing step ends the run.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aluedeke/go-xcexport/pkg/archive"
	"github.com/aluedeke/go-xcexport/pkg/codesign"
	"github.com/aluedeke/go-xcexport/pkg/config"
	"github.com/aluedeke/go-xcexport/pkg/console"
	"github.com/aluedeke/go-xcexport/pkg/export"
)

// Exporter packages an archive with the named provisioning profile
type Exporter interface {
	Export(ctx context.Context, archivePath, exportPath, profileName string) error
}

// Result holds what a successful run resolved
type Result struct {
	ArchivePath string
	Identity    *codesign.Identity
	ExportPath  string
}

// Runner sequences the export steps
type Runner struct {
	cfg      config.Config
	msg      *console.Messenger
	prompt   *console.Prompter
	exporter Exporter
	now      func() time.Time
}

// New returns a Runner. The prompter's AutoAccept should mirror cfg.AutoAccept.
func New(cfg config.Config, msg *console.Messenger, prompt *console.Prompter, exporter Exporter) *Runner {
	return &Runner{
		cfg:      cfg,
		msg:      msg,
		prompt:   prompt,
		exporter: exporter,
		now:      time.Now,
	}
}

// Run executes all steps. Errors from a step are returned as *StepError.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, stepErr(step, err, "")
		}
		r.msg.Step(i+1, len(steps), string(step))

		var err error
		switch step {
		case StepArchive:
			res.ArchivePath, err = r.selectArchive(ctx)
		case StepProfile:
			res.Identity, err = r.resolveProfile(res.ArchivePath)
		case StepExportPath:
			res.ExportPath, err = r.resolveExportPath(ctx, res.ArchivePath)
		case StepExport:
			err = r.export(ctx, res)
		}
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (r *Runner) selectArchive(ctx context.Context) (string, error) {
	path, err := archive.Select(ctx, r.cfg.ArchivesDir, r.cfg.NumArchives, r.cfg.ArchiveOverride, r.msg, r.prompt)
	if err != nil {
		hint := ""
		if errors.Is(err, archive.ErrNoArchives) {
			hint = "Archive the app in Xcode first or pass --archive=<path>"
		}
		return "", stepErr(StepArchive, err, hint)
	}

	if err := archive.Validate(path); err != nil {
		return "", stepErr(StepArchive, err, "")
	}
	r.msg.Highlightf("Archive: %s", path)

	r.describeArchive(path)
	return path, nil
}

// describeArchive prints archive metadata when available, never failing the step.
// The app's own Info.plist fills in a bundle ID the archive Info.plist lacks.
func (r *Runner) describeArchive(path string) {
	var bundleID, version, appRel string
	if info, err := archive.ReadInfo(path); err == nil {
		bundleID = info.ApplicationProperties.BundleIdentifier
		version = info.Version()
		appRel = info.ApplicationProperties.ApplicationPath
	}

	appPath, appErr := archive.FindAppBundle(path, appRel)
	if bundleID == "" && appErr == nil {
		bundleID, _ = codesign.GetAppBundleID(appPath)
	}
	if bundleID != "" {
		r.msg.Infof("Bundle ID: %s", bundleID)
	}
	if version != "" {
		r.msg.Infof("Version: %s", version)
	}
	if appErr != nil {
		return
	}

	execPath, err := codesign.GetAppExecutablePath(appPath)
	if err != nil {
		return
	}
	if bin, err := codesign.InspectBinary(execPath); err == nil {
		state := "signed"
		if !bin.Signed {
			state = "not signed"
		}
		r.msg.Infof("Executable: %s (%s)", strings.Join(bin.Architectures, ", "), state)
	}
}

func (r *Runner) resolveProfile(archivePath string) (*codesign.Identity, error) {
	id, err := codesign.ExtractProfileIdentifier(archivePath)
	if err != nil {
		return nil, stepErr(StepProfile, err, "")
	}
	r.msg.Infof("Profile UUID: %s", id)

	identity, err := codesign.LoadInstalledProfile(r.cfg.ProfilesDir, id)
	if err != nil {
		hint := ""
		if errors.Is(err, codesign.ErrProfileNotInstalled) {
			hint = fmt.Sprintf("Install the provisioning profile %s (download it in Xcode or open the .mobileprovision file) and run again", id)
		}
		return nil, stepErr(StepProfile, err, hint)
	}
	r.msg.Infof("Profile file: %s", identity.ProfilePath)
	r.msg.Highlightf("Profile: %s", identity.Name)

	if p := identity.Profile; p != nil {
		r.msg.Infof("Team: %s (%s), %s profile", p.TeamName, p.GetTeamID(), p.Kind())
		if p.IsExpiredAt(r.now()) {
			r.msg.Warnf("Profile expired on %s", p.ExpirationDate.Format("2006-01-02"))
		}
	}

	return identity, nil
}

func (r *Runner) resolveExportPath(ctx context.Context, archivePath string) (string, error) {
	path, err := export.ResolvePath(ctx, archivePath, r.cfg.ExportDir, r.msg, r.prompt)
	if err != nil {
		hint := ""
		if errors.Is(err, export.ErrConflict) {
			hint = "Move or delete the existing file manually and run again"
		}
		return "", stepErr(StepExportPath, err, hint)
	}
	r.msg.Highlightf("Export path: %s", path)
	return path, nil
}

func (r *Runner) export(ctx context.Context, res *Result) error {
	question := fmt.Sprintf("Export %s with profile %q", export.BaseName(res.ArchivePath), res.Identity.Name)
	ok, err := r.prompt.Confirm(ctx, question, "")
	if err != nil {
		return stepErr(StepExport, err, "")
	}
	if !ok {
		r.msg.Warn("Export cancelled")
		return stepErr(StepExport, ErrDeclined, "")
	}

	r.msg.Info("Exporting, this may take a while...")
	if err := r.exporter.Export(ctx, res.ArchivePath, res.ExportPath, res.Identity.Name); err != nil {
		return stepErr(StepExport, err, "")
	}

	r.msg.Highlightf("Exported %s", res.ExportPath)
	return nil
}
