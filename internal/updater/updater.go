// Package updater checks GitHub releases for a newer packaged version of the
// application, downloads it with progress reporting and hands it to a
// platform installer. Results are delivered as events on the embedded Emitter.
package updater

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/creativeprojects/go-selfupdate"
	"golang.org/x/oauth2"

	"github.com/smeup/signmeup-client/sentry"
)

const maxChannelFileSize = 1 << 20

var (
	// ErrDevBuild is returned when the running version cannot be compared
	// against published releases.
	ErrDevBuild = errors.New("update check unavailable for development builds")
	// ErrNoRelease means no published release carries the channel file.
	ErrNoRelease = errors.New("no published release found")
	// ErrNoUpdate is returned by DownloadUpdate before an update was found.
	ErrNoUpdate = errors.New("no update available to download")
	// ErrNotDownloaded is returned by QuitAndInstall before a download finished.
	ErrNotDownloaded = errors.New("update has not been downloaded")
	// ErrChecksumMismatch is returned when a downloaded package fails sha512 validation.
	ErrChecksumMismatch = errors.New("sha512 checksum mismatch")
)

// Config configures an Updater.
type Config struct {
	Owner          string
	Repo           string
	CurrentVersion string

	// Channel is the channel file name; defaults to ChannelFile(runtime.GOOS).
	Channel         string
	AllowPrerelease bool

	// CacheDir receives downloaded packages; defaults to os.UserCacheDir()/signmeup/pending.
	CacheDir string

	Source     selfupdate.Source
	HTTPClient *http.Client
	Installer  Installer
	Logger     *log.Logger

	// ProgressInterval throttles EventProgress; defaults to 250ms.
	ProgressInterval time.Duration
}

type pendingUpdate struct {
	info       UpdateInfo
	channelURL string
	assets     map[string]string
}

// Updater is the update source of the application.
type Updater struct {
	Emitter

	cfg     Config
	current *semver.Version
	client  *http.Client
	logger  *log.Logger

	mu          sync.Mutex
	generation  uint64
	cancelCheck context.CancelFunc
	pending     *pendingUpdate
	downloading bool
	staged      string
	stagedInfo  UpdateInfo
}

// New returns an Updater. A development or unparsable CurrentVersion is not
// an error here; CheckForUpdates reports it.
func New(cfg Config) (*Updater, error) {
	if cfg.Source == nil {
		return nil, errors.New("updater: source is required")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, selfupdate.ErrInvalidSlug
	}
	if cfg.Channel == "" {
		cfg.Channel = ChannelFile(runtime.GOOS)
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 250 * time.Millisecond
	}
	if cfg.Installer == nil {
		cfg.Installer = DefaultInstaller()
	}

	u := &Updater{
		cfg:    cfg,
		client: cfg.HTTPClient,
		logger: cfg.Logger,
	}
	if u.client == nil {
		u.client = http.DefaultClient
	}
	if u.logger == nil {
		u.logger = log.New(io.Discard)
	}

	v := strings.TrimSpace(cfg.CurrentVersion)
	if v != "" && !strings.EqualFold(v, "dev") {
		if parsed, err := semver.NewVersion(v); err == nil {
			u.current = parsed
		}
	}
	return u, nil
}

// NewGitHubSource returns a release source for github.com, or for a GitHub
// Enterprise API when baseURL is set.
func NewGitHubSource(token, baseURL string) (selfupdate.Source, error) {
	return selfupdate.NewGitHubSource(selfupdate.GitHubConfig{
		APIToken:          token,
		EnterpriseBaseURL: baseURL,
	})
}

// NewHTTPClient returns a client that authenticates with token, or the
// default client when token is empty.
func NewHTTPClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return http.DefaultClient
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

// CurrentVersion returns the version the updater compares against.
func (u *Updater) CurrentVersion() string {
	return u.cfg.CurrentVersion
}

// CheckForUpdates emits EventChecking and starts a check in the background.
// The outcome is emitted as EventAvailable, EventNotAvailable or EventError.
// A check started while another is in flight supersedes it: the earlier
// check is cancelled and its outcome is never emitted. The check outlives
// ctx; callers that stop waiting still get the outcome as an event.
func (u *Updater) CheckForUpdates(ctx context.Context) error {
	if u.current == nil {
		return ErrDevBuild
	}

	checkCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	u.mu.Lock()
	if u.cancelCheck != nil {
		u.cancelCheck()
	}
	u.generation++
	gen := u.generation
	u.cancelCheck = cancel
	u.mu.Unlock()

	sentry.AddBreadcrumb("update", "checking for updates", map[string]interface{}{
		"current": u.cfg.CurrentVersion,
		"channel": u.cfg.Channel,
	}, sentry.LevelInfo)
	u.logger.Debug("checking for updates", "current", u.cfg.CurrentVersion, "channel", u.cfg.Channel)
	u.Emit(EventChecking, nil)

	go func() {
		defer cancel()

		pending, err := u.check(checkCtx)

		u.mu.Lock()
		if gen != u.generation {
			u.mu.Unlock()
			u.logger.Debug("discarding superseded update check")
			return
		}
		u.cancelCheck = nil
		if err == nil && pending != nil {
			u.pending = pending
		}
		u.mu.Unlock()

		if err != nil {
			u.logger.Warn("update check failed", "err", err)
			u.Emit(EventError, err)
			return
		}
		if pending == nil {
			u.logger.Info("no update available", "current", u.cfg.CurrentVersion)
			u.Emit(EventNotAvailable, UpdateInfo{Version: u.current.String()})
			return
		}
		u.logger.Info("update available", "current", u.cfg.CurrentVersion, "latest", pending.info.Version)
		u.Emit(EventAvailable, pending.info)
	}()

	return nil
}

// check returns nil, nil when the newest release is not newer than the
// running version.
func (u *Updater) check(ctx context.Context) (*pendingUpdate, error) {
	repo := selfupdate.NewRepositorySlug(u.cfg.Owner, u.cfg.Repo)
	releases, err := u.cfg.Source.ListReleases(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("list releases for %s/%s: %w", u.cfg.Owner, u.cfg.Repo, err)
	}

	var (
		best        selfupdate.SourceRelease
		bestVersion *semver.Version
		channelURL  string
	)
	for _, rel := range releases {
		if rel == nil || rel.GetDraft() {
			continue
		}
		if rel.GetPrerelease() && !u.cfg.AllowPrerelease {
			continue
		}
		v, err := semver.NewVersion(rel.GetTagName())
		if err != nil {
			u.logger.Debug("skipping release with non-semver tag", "tag", rel.GetTagName())
			continue
		}
		if v.Prerelease() != "" && !u.cfg.AllowPrerelease {
			continue
		}
		assetURL := ""
		for _, a := range rel.GetAssets() {
			if a.GetName() == u.cfg.Channel {
				assetURL = a.GetBrowserDownloadURL()
				break
			}
		}
		if assetURL == "" {
			continue
		}
		if bestVersion == nil || v.GreaterThan(bestVersion) {
			best, bestVersion, channelURL = rel, v, assetURL
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no release of %s/%s carries %s", ErrNoRelease, u.cfg.Owner, u.cfg.Repo, u.cfg.Channel)
	}

	data, err := u.fetch(ctx, channelURL, maxChannelFileSize)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u.cfg.Channel, err)
	}
	info, err := ParseUpdateInfo(data)
	if err != nil {
		return nil, err
	}
	info.ReleaseName = best.GetName()
	info.ReleaseNotes = best.GetReleaseNotes()

	latest, _ := semver.NewVersion(info.Version)
	if !latest.GreaterThan(u.current) {
		return nil, nil
	}

	assets := make(map[string]string, len(best.GetAssets()))
	for _, a := range best.GetAssets() {
		assets[a.GetName()] = a.GetBrowserDownloadURL()
	}
	return &pendingUpdate{info: info, channelURL: channelURL, assets: assets}, nil
}

// stagedName is the local file name for a package downloaded from rawURL.
func stagedName(rawURL string) string {
	name := path.Base(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	name = filepath.Base(filepath.FromSlash(name))
	if name == "." || name == string(filepath.Separator) {
		return "update.pkg"
	}
	return name
}

func (u *Updater) fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// DownloadUpdate downloads the update found by the last check, emitting
// EventProgress while streaming and EventDownloaded once the package is
// verified and staged. Failures are returned and also emitted as EventError.
// A download already in progress makes this a no-op.
func (u *Updater) DownloadUpdate(ctx context.Context) error {
	u.mu.Lock()
	pending := u.pending
	if pending == nil {
		u.mu.Unlock()
		return ErrNoUpdate
	}
	if u.downloading {
		u.mu.Unlock()
		return nil
	}
	u.downloading = true
	u.mu.Unlock()

	path, err := u.download(ctx, pending)

	u.mu.Lock()
	u.downloading = false
	if err == nil {
		u.staged = path
		u.stagedInfo = pending.info
	}
	u.mu.Unlock()

	if err != nil {
		u.logger.Error("update download failed", "version", pending.info.Version, "err", err)
		u.Emit(EventError, err)
		return err
	}

	u.logger.Info("update downloaded", "version", pending.info.Version, "path", path)
	u.Emit(EventDownloaded, pending.info)
	return nil
}

func (u *Updater) download(ctx context.Context, p *pendingUpdate) (string, error) {
	file, ok := p.info.PrimaryFile()
	if !ok {
		return "", fmt.Errorf("channel file for %s lists no files", p.info.Version)
	}
	url, err := resolveFileURL(file.URL, p.assets, p.channelURL)
	if err != nil {
		return "", err
	}

	dir, err := u.cacheDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create update cache: %w", err)
	}

	sentry.AddBreadcrumb("update", "downloading update", map[string]interface{}{
		"version": p.info.Version,
		"url":     url,
	}, sentry.LevelInfo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = file.Size
	}

	dest := filepath.Join(dir, stagedName(url))
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	hash := sha512.New()
	pw := &progressWriter{
		emit:     func(p ProgressInfo) { u.Emit(EventProgress, p) },
		total:    total,
		interval: u.cfg.ProgressInterval,
		start:    time.Now(),
	}
	if _, err := io.Copy(io.MultiWriter(tmp, hash, pw), resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	pw.finish()
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if file.SHA512 != "" {
		got := base64.StdEncoding.EncodeToString(hash.Sum(nil))
		if got != file.SHA512 {
			return "", fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, file.SHA512, got)
		}
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("stage update: %w", err)
	}
	return dest, nil
}

func (u *Updater) cacheDir() (string, error) {
	if u.cfg.CacheDir != "" {
		return u.cfg.CacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "signmeup", "pending"), nil
}

// Staged returns the path and info of the downloaded update, if any.
func (u *Updater) Staged() (string, UpdateInfo, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.staged, u.stagedInfo, u.staged != ""
}

// QuitAndInstall hands the staged package to the installer. The caller is
// expected to exit right after a nil return.
func (u *Updater) QuitAndInstall(ctx context.Context) error {
	path, info, ok := u.Staged()
	if !ok {
		return ErrNotDownloaded
	}
	u.logger.Info("installing update", "version", info.Version, "path", path)
	if err := u.cfg.Installer.Install(ctx, path); err != nil {
		return fmt.Errorf("install %s: %w", info.Version, err)
	}
	return nil
}

type progressWriter struct {
	emit     func(ProgressInfo)
	total    int64
	written  int64
	interval time.Duration
	start    time.Time
	last     time.Time
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	now := time.Now()
	if now.Sub(w.last) >= w.interval {
		w.last = now
		w.emit(w.info(now))
	}
	return len(p), nil
}

func (w *progressWriter) finish() {
	w.emit(w.info(time.Now()))
}

func (w *progressWriter) info(now time.Time) ProgressInfo {
	p := ProgressInfo{Total: w.total, Transferred: w.written}
	if w.total > 0 {
		p.Percent = float64(w.written) * 100 / float64(w.total)
	}
	if elapsed := now.Sub(w.start).Seconds(); elapsed > 0 {
		p.BytesPerSecond = int64(float64(w.written) / elapsed)
	}
	return p
}
