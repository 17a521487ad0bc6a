// Package shell hosts the front-end in the user's browser through a loopback
// HTTP server and connects it to the update source.
package shell

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"sync"
	"text/template"
	"time"

	"github.com/charmbracelet/log"

	"github.com/smeup/signmeup-client/internal/bridge"
	"github.com/smeup/signmeup-client/internal/logging"
	"github.com/smeup/signmeup-client/internal/relay"
	"github.com/smeup/signmeup-client/internal/updater"
)

const (
	CheckPath   = "/api/check-for-updates"
	VersionPath = "/api/app-version"
	EventsPath  = "/api/events"
)

//go:embed preload.js.tmpl
var preloadFS embed.FS

var preloadTemplate = template.Must(template.ParseFS(preloadFS, "preload.js.tmpl"))

// UpdateSource is what the shell needs from the updater.
type UpdateSource interface {
	bridge.Source
	On(ev updater.Event, fn updater.Listener) (remove func())
	DownloadUpdate(ctx context.Context) error
	QuitAndInstall(ctx context.Context) error
}

// Options configures an App.
type Options struct {
	// Packaged enables the automatic update check.
	Packaged bool
	// GOOS defaults to runtime.GOOS and decides whether closing the last
	// window quits.
	GOOS string

	Version string
	Content Content
	Updates UpdateSource

	CheckTimeout time.Duration
	// WindowGrace is how long the window survives without a connected page.
	WindowGrace time.Duration

	Prompter Prompter
	// Open shows url to the user; nil leaves it to them.
	Open   func(url string) error
	Logger *log.Logger
}

// Window is the handle of the page shown to the user.
type Window struct {
	URL    string
	Opened time.Time
}

// App is the desktop shell.
type App struct {
	opts   Options
	logger *log.Logger

	bridge *bridge.Bridge
	relay  *relay.Relay
	hub    *relay.Hub
	mux    *http.ServeMux

	registerOnce sync.Once
	startOnce    sync.Once
	quitOnce     sync.Once
	quit         chan struct{}

	mu     sync.Mutex
	ctx    context.Context
	url    string
	window *Window
	grace  *time.Timer

	promptMu sync.Mutex
	removes  []func()
}

// New returns an App. Nothing listens until Run or Handler is used.
func New(opts Options) (*App, error) {
	if opts.Updates == nil {
		return nil, errors.New("shell: update source is required")
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Prompter == nil {
		opts.Prompter = &headlessPrompter{logger: opts.Logger}
	}

	a := &App{
		opts:   opts,
		logger: opts.Logger,
		bridge: bridge.New(opts.Updates, bridge.WithTimeout(opts.CheckTimeout)),
		relay:  relay.New(),
		mux:    http.NewServeMux(),
		quit:   make(chan struct{}),
		ctx:    context.Background(),
	}
	a.hub = relay.NewHub(a.relay, opts.Logger, relay.WithClientsChanged(a.pagesChanged))
	return a, nil
}

// Relay returns the renderer channel relay.
func (a *App) Relay() *relay.Relay { return a.relay }

// Handler registers the HTTP surface on first use and returns it.
func (a *App) Handler() http.Handler {
	a.registerOnce.Do(a.register)
	return a.mux
}

func (a *App) register() {
	a.mux.HandleFunc("POST "+CheckPath, a.handleCheck)
	a.mux.HandleFunc("GET "+VersionPath, a.handleVersion)
	a.mux.Handle("GET "+EventsPath, a.hub)
	a.mux.HandleFunc("GET "+PreloadPath, a.handlePreload)
	a.mux.Handle("/", a.opts.Content.Handler(a.logger))
}

func (a *App) handleCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.bridge.CheckForUpdates(r.Context()))
}

func (a *App) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": a.opts.Version})
}

func (a *App) handlePreload(w http.ResponseWriter, r *http.Request) {
	channels, _ := json.Marshal(relay.Channels())
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	err := preloadTemplate.Execute(w, map[string]string{
		"Channels":    string(channels),
		"EventsPath":  EventsPath,
		"CheckPath":   CheckPath,
		"VersionPath": VersionPath,
	})
	if err != nil {
		a.logger.Error("failed to render preload script", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Start runs once when the server is ready: it wires update events to the
// page, creates the window and, when packaged, checks for updates.
func (a *App) Start(ctx context.Context, url string) {
	a.startOnce.Do(func() {
		a.Handler()

		a.mu.Lock()
		a.ctx = ctx
		a.url = url
		a.mu.Unlock()

		a.forwardUpdates()

		if a.opts.Content.Mode == ContentMissing {
			a.logger.Error("failed to load content: application bundle not found", "tried", a.opts.Content.Tried)
		}
		a.createWindow(true)

		if a.opts.Packaged {
			go func() {
				if err := a.opts.Updates.CheckForUpdates(ctx); err != nil {
					a.logger.Warn("automatic update check failed", "err", err)
				}
			}()
		}
	})
}

// Run serves on addr until ctx is cancelled or the app quits.
func (a *App) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	url := "http://" + ln.Addr().String() + "/"
	a.logger.Info("shell listening", "url", url, "content", a.opts.Content.Mode)
	a.Start(ctx, url)

	select {
	case <-ctx.Done():
	case <-a.quit:
	case err = <-serveErr:
	}

	a.shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if sErr := srv.Shutdown(shutdownCtx); sErr != nil && err == nil {
		err = sErr
	}
	return err
}

// URL returns the address of the page once started.
func (a *App) URL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.url
}

// Done is closed when the app quits.
func (a *App) Done() <-chan struct{} { return a.quit }

// Quit ends the app.
func (a *App) Quit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

func (a *App) shutdown() {
	a.mu.Lock()
	removes := a.removes
	a.removes = nil
	if a.grace != nil {
		a.grace.Stop()
	}
	a.mu.Unlock()

	for _, remove := range removes {
		remove()
	}
	a.hub.Close()
}

// Window returns the current window, or nil when none is open.
func (a *App) Window() *Window {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.window
}

// Activate recreates the window when none is open.
func (a *App) Activate() {
	a.createWindow(true)
}

func (a *App) createWindow(show bool) {
	a.mu.Lock()
	if a.window != nil || a.url == "" {
		a.mu.Unlock()
		return
	}
	a.window = &Window{URL: a.url, Opened: time.Now()}
	url := a.url
	a.mu.Unlock()

	if !show {
		return
	}
	if a.opts.Open == nil {
		a.logger.Info("open the application in your browser", "url", url)
		return
	}
	if err := a.opts.Open(url); err != nil {
		a.logger.Warn("failed to open browser automatically", "url", url, "err", err)
	}
}

// CloseWindow clears the window handle. Closing the last window quits
// except on darwin.
func (a *App) CloseWindow() {
	a.mu.Lock()
	if a.window == nil {
		a.mu.Unlock()
		return
	}
	a.window = nil
	a.mu.Unlock()

	a.logger.Debug("window closed")
	if a.opts.GOOS != "darwin" {
		a.Quit()
	}
}

// pagesChanged tracks the window through its page connections. A page that
// connects while no window is open re-creates the handle; the last page
// leaving closes it after the grace period.
func (a *App) pagesChanged(clients int) {
	a.mu.Lock()
	if a.grace != nil {
		a.grace.Stop()
		a.grace = nil
	}
	if clients > 0 {
		adopt := a.window == nil
		a.mu.Unlock()
		if adopt {
			a.createWindow(false)
		}
		return
	}
	if a.window != nil {
		a.grace = time.AfterFunc(a.opts.WindowGrace, a.graceExpired)
	}
	a.mu.Unlock()
}

func (a *App) graceExpired() {
	if a.hub.Clients() > 0 {
		return
	}
	a.CloseWindow()
}

func (a *App) forwardUpdates() {
	u := a.opts.Updates
	r := a.relay

	removes := []func(){
		u.On(updater.EventChecking, func(any) {
			r.Send(relay.ChannelChecking)
		}),
		u.On(updater.EventAvailable, func(p any) {
			r.Send(relay.ChannelAvailable, p)
			go a.offerDownload(p)
		}),
		u.On(updater.EventNotAvailable, func(p any) {
			r.Send(relay.ChannelNotAvailable, p)
		}),
		u.On(updater.EventProgress, func(p any) {
			r.Send(relay.ChannelProgress, p)
		}),
		u.On(updater.EventDownloaded, func(p any) {
			r.Send(relay.ChannelDownloaded, p)
			go a.offerRestart(p)
		}),
		u.On(updater.EventError, func(p any) {
			msg := describeError(p)
			r.Send(relay.ChannelError, msg)
			go a.opts.Prompter.Alert(a.context(), "Update error", msg)
		}),
	}

	a.mu.Lock()
	a.removes = append(a.removes, removes...)
	a.mu.Unlock()
}

func (a *App) context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

func (a *App) offerDownload(p any) {
	a.promptMu.Lock()
	defer a.promptMu.Unlock()

	ctx := a.context()
	ok, err := a.opts.Prompter.Confirm(ctx, Prompt{
		Title:   "Update available",
		Message: fmt.Sprintf("A new version (%s) is available. Do you want to download it now?", versionOf(p)),
		Yes:     "Download",
		No:      "Later",
	})
	if err != nil {
		a.logger.Warn("update prompt failed", "err", err)
		return
	}
	if !ok {
		a.logger.Info("update download postponed", "version", versionOf(p))
		return
	}
	// Failures are reported through the error event.
	if err := a.opts.Updates.DownloadUpdate(ctx); err != nil {
		a.logger.Debug("update download did not complete", "err", err)
	}
}

func (a *App) offerRestart(p any) {
	a.promptMu.Lock()
	defer a.promptMu.Unlock()

	ctx := a.context()
	ok, err := a.opts.Prompter.Confirm(ctx, Prompt{
		Title:   "Update ready",
		Message: fmt.Sprintf("Version %s has been downloaded. Restart now to install it?", versionOf(p)),
		Yes:     "Restart",
		No:      "Later",
	})
	if err != nil {
		a.logger.Warn("restart prompt failed", "err", err)
		return
	}
	if !ok {
		a.logger.Info("update will be installed later", "version", versionOf(p))
		return
	}
	if err := a.opts.Updates.QuitAndInstall(ctx); err != nil {
		a.logger.Error("failed to install update", "err", err)
		a.opts.Prompter.Alert(ctx, "Update error", err.Error())
		return
	}
	a.Quit()
}

func versionOf(p any) string {
	switch v := p.(type) {
	case updater.UpdateInfo:
		return v.Version
	case *updater.UpdateInfo:
		if v != nil {
			return v.Version
		}
	}
	return "unknown"
}

func describeError(p any) string {
	switch v := p.(type) {
	case nil:
		return "unknown"
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
