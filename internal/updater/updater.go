// Package updater replaces the running binary with the latest GitHub
// release of rgbnode.
package updater

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/smazurov/rgbnode/internal/logging"
	"github.com/smazurov/rgbnode/internal/version"
)

// DefaultRepository is the GitHub slug releases are fetched from.
const DefaultRepository = "smazurov/rgbnode"

// backupSuffix names the copy of the previous binary kept next to it.
const backupSuffix = ".backup"

// Options configures an Updater.
type Options struct {
	Repository string // GitHub slug, DefaultRepository when empty
	Prerelease bool
}

// Info describes the latest release relative to the running version.
type Info struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes,omitempty"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	PublishedAt     time.Time `json:"published_at,omitempty"`
	AssetSize       int       `json:"asset_size,omitempty"`
	UpdateAvailable bool      `json:"update_available"`
}

// Updater checks for and applies releases. At most one operation runs at a
// time.
type Updater struct {
	repository selfupdate.Repository
	updater    *selfupdate.Updater
	exe        string

	disabledReason string

	busy   sync.Mutex
	logger *slog.Logger
}

// New creates an updater for the current executable. When the executable
// directory is not writable the updater is created disabled.
func New(opts Options) (*Updater, error) {
	logger := logging.GetLogger("updater")

	slug := opts.Repository
	if slug == "" {
		slug = DefaultRepository
	}

	u := &Updater{
		repository: selfupdate.ParseSlug(slug),
		logger:     logger,
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		u.disabledReason = fmt.Sprintf("failed to locate executable: %v", err)
		return u, nil
	}
	u.exe = exe

	if reason := checkWritable(filepath.Dir(exe)); reason != "" {
		logger.Warn("Self update disabled", "reason", reason)
		u.disabledReason = reason
		return u, nil
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}
	u.updater, err = selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	return u, nil
}

// Enabled reports whether updates can be applied.
func (u *Updater) Enabled() bool {
	return u.disabledReason == ""
}

// DisabledReason explains why the updater is disabled.
func (u *Updater) DisabledReason() string {
	return u.disabledReason
}

// Check looks up the latest release without downloading it.
func (u *Updater) Check(ctx context.Context) (*Info, error) {
	if !u.Enabled() {
		return nil, newError(ErrCodeDisabled, u.disabledReason, nil)
	}
	if !u.busy.TryLock() {
		return nil, newError(ErrCodeBusy, "another update operation is running", nil)
	}
	defer u.busy.Unlock()

	info, _, err := u.check(ctx)
	return info, err
}

// Apply downloads and installs the latest release, keeping the running
// binary as a backup. The new binary takes effect on the next start.
func (u *Updater) Apply(ctx context.Context) (*Info, error) {
	if !u.Enabled() {
		return nil, newError(ErrCodeDisabled, u.disabledReason, nil)
	}
	if !u.busy.TryLock() {
		return nil, newError(ErrCodeBusy, "another update operation is running", nil)
	}
	defer u.busy.Unlock()

	info, release, err := u.check(ctx)
	if err != nil {
		return nil, err
	}
	if !info.UpdateAvailable {
		return info, newError(ErrCodeNoUpdate, "already running "+info.CurrentVersion, nil)
	}

	backup := u.exe + backupSuffix
	if err := copyFile(u.exe, backup); err != nil {
		return nil, newError(ErrCodeBackup, "failed to back up "+u.exe, err)
	}

	u.logger.Info("Applying update", "from", info.CurrentVersion, "to", info.LatestVersion)
	if err := u.updater.UpdateTo(ctx, release, u.exe); err != nil {
		if restoreErr := copyFile(backup, u.exe); restoreErr != nil {
			u.logger.Error("Failed to restore backup", "error", restoreErr)
		}
		return nil, newError(ErrCodeApply, "failed to install release", err)
	}

	u.logger.Info("Update applied", "version", info.LatestVersion, "backup", backup)
	return info, nil
}

func (u *Updater) check(ctx context.Context) (*Info, *selfupdate.Release, error) {
	current := version.Version

	release, found, err := u.updater.DetectLatest(ctx, u.repository)
	if err != nil {
		return nil, nil, newError(ErrCodeCheckFailed, "failed to query releases", err)
	}
	if !found {
		return nil, nil, newError(ErrCodeNotFound, "repository has no releases", nil)
	}

	info := &Info{
		CurrentVersion: current,
		LatestVersion:  release.Version(),
		// dev builds always update
		UpdateAvailable: current == "dev" || release.GreaterThan(current),
	}
	if info.UpdateAvailable {
		info.ReleaseNotes = release.ReleaseNotes
		info.ReleaseURL = release.URL
		info.PublishedAt = release.PublishedAt
		info.AssetSize = release.AssetByteSize
	}

	u.logger.Debug("Checked for update", "current", current, "latest", info.LatestVersion, "available", info.UpdateAvailable)
	return info, release, nil
}

// checkWritable returns a reason when dir cannot hold a replacement binary.
func checkWritable(dir string) string {
	f, err := os.CreateTemp(dir, ".rgbnode-update-*")
	if err != nil {
		return fmt.Sprintf("no write permission to %s: %v", dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return ""
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return out.Close()
}
