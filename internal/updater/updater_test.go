package updater

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/google/go-github/v74/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	releases []selfupdate.SourceRelease
	err      error
	calls    int
	// block, when set, is called before returning and may wait on ctx.
	block func(ctx context.Context, call int) error
}

func (f *fakeSource) ListReleases(ctx context.Context, _ selfupdate.Repository) ([]selfupdate.SourceRelease, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.block != nil {
		if err := f.block(ctx, call); err != nil {
			return nil, err
		}
	}
	return f.releases, f.err
}

func (f *fakeSource) DownloadReleaseAsset(context.Context, *selfupdate.Release, int64) (io.ReadCloser, error) {
	return nil, selfupdate.ErrNotSupported
}

func release(tag string, draft, prerelease bool, assets map[string]string) selfupdate.SourceRelease {
	rel := &github.RepositoryRelease{
		TagName:    github.Ptr(tag),
		Name:       github.Ptr("SignMeUp " + tag),
		Body:       github.Ptr("notes for " + tag),
		Draft:      github.Ptr(draft),
		Prerelease: github.Ptr(prerelease),
	}
	var id int64
	for name, url := range assets {
		id++
		rel.Assets = append(rel.Assets, &github.ReleaseAsset{
			ID:                 github.Ptr(id),
			Name:               github.Ptr(name),
			BrowserDownloadURL: github.Ptr(url),
		})
	}
	return selfupdate.NewGitHubRelease(rel)
}

type feedServer struct {
	*httptest.Server
	mu    sync.Mutex
	files map[string][]byte
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{files: map[string][]byte{}}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		data, ok := fs.files[r.URL.Path]
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		_, _ = w.Write(data)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) put(path string, data []byte) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = data
	return fs.URL + path
}

func newTestUpdater(t *testing.T, src selfupdate.Source, current string) (*Updater, *fakeInstaller) {
	t.Helper()
	inst := &fakeInstaller{}
	u, err := New(Config{
		Owner:            "smeup",
		Repo:             "signmeup-client-electron-binaries",
		CurrentVersion:   current,
		Channel:          "latest.yml",
		CacheDir:         t.TempDir(),
		Source:           src,
		Installer:        inst,
		ProgressInterval: time.Nanosecond,
	})
	require.NoError(t, err)
	return u, inst
}

type fakeInstaller struct {
	mu       sync.Mutex
	packages []string
	err      error
}

func (f *fakeInstaller) Install(_ context.Context, pkg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packages = append(f.packages, pkg)
	return f.err
}

// waitEvent registers a one-shot listener and returns a func that waits for it.
func waitEvent(t *testing.T, u *Updater, ev Event) func() any {
	t.Helper()
	ch := make(chan any, 1)
	u.Once(ev, func(p any) { ch <- p })
	return func() any {
		t.Helper()
		select {
		case p := <-ch:
			return p
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", ev)
			return nil
		}
	}
}

func channelYAML(version, file string, payload []byte) []byte {
	sum := sha512.Sum512(payload)
	digest := base64.StdEncoding.EncodeToString(sum[:])
	return []byte(fmt.Sprintf("version: %s\nfiles:\n  - url: %s\n    sha512: %s\n    size: %d\npath: %s\nsha512: %s\n",
		version, file, digest, len(payload), file, digest))
}

func TestCheckForUpdatesAvailable(t *testing.T) {
	fs := newFeedServer(t)
	pkg := []byte("installer-1.1.0")

	src := &fakeSource{releases: []selfupdate.SourceRelease{
		release("v1.0.0", false, false, map[string]string{
			"latest.yml": fs.put("/v1.0.0/latest.yml", channelYAML("1.0.0", "SignMeUp-Setup-1.0.0.exe", []byte("old"))),
		}),
		release("v1.1.0", false, false, map[string]string{
			"latest.yml":               fs.put("/v1.1.0/latest.yml", channelYAML("1.1.0", "SignMeUp-Setup-1.1.0.exe", pkg)),
			"SignMeUp-Setup-1.1.0.exe": fs.put("/v1.1.0/SignMeUp-Setup-1.1.0.exe", pkg),
		}),
		release("v2.0.0", true, false, map[string]string{"latest.yml": fs.URL + "/draft"}),
		release("v1.2.0-beta.1", false, true, map[string]string{"latest.yml": fs.URL + "/beta"}),
		release("v1.3.0", false, false, map[string]string{"SignMeUp-Setup-1.3.0.exe": fs.URL + "/nochannel"}),
	}}
	u, _ := newTestUpdater(t, src, "1.0.0")

	checking := waitEvent(t, u, EventChecking)
	available := waitEvent(t, u, EventAvailable)

	require.NoError(t, u.CheckForUpdates(context.Background()))
	checking()

	info, ok := available().(UpdateInfo)
	require.True(t, ok)
	assert.Equal(t, "1.1.0", info.Version)
	assert.Equal(t, "SignMeUp v1.1.0", info.ReleaseName)
	assert.Equal(t, "notes for v1.1.0", info.ReleaseNotes)
	assert.Equal(t, 1, src.calls)
}

func TestCheckForUpdatesNotAvailable(t *testing.T) {
	fs := newFeedServer(t)
	src := &fakeSource{releases: []selfupdate.SourceRelease{
		release("v1.0.2", false, false, map[string]string{
			"latest.yml": fs.put("/latest.yml", channelYAML("1.0.2", "a.exe", []byte("a"))),
		}),
	}}
	u, _ := newTestUpdater(t, src, "1.0.2")

	notAvailable := waitEvent(t, u, EventNotAvailable)
	require.NoError(t, u.CheckForUpdates(context.Background()))

	info, ok := notAvailable().(UpdateInfo)
	require.True(t, ok)
	assert.Equal(t, "1.0.2", info.Version)

	assert.ErrorIs(t, u.DownloadUpdate(context.Background()), ErrNoUpdate)
}

func TestCheckForUpdatesErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     *fakeSource
		wantErr error
	}{
		{
			name:    "source failure",
			src:     &fakeSource{err: errors.New("boom")},
			wantErr: nil,
		},
		{
			name:    "no releases",
			src:     &fakeSource{},
			wantErr: ErrNoRelease,
		},
		{
			name: "channel file missing on server",
			src: &fakeSource{releases: []selfupdate.SourceRelease{
				release("v9.0.0", false, false, map[string]string{"latest.yml": "http://127.0.0.1:1/latest.yml"}),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, _ := newTestUpdater(t, tt.src, "1.0.0")
			failed := waitEvent(t, u, EventError)

			require.NoError(t, u.CheckForUpdates(context.Background()))

			err, ok := failed().(error)
			require.True(t, ok)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCheckForUpdatesDevBuild(t *testing.T) {
	for _, v := range []string{"dev", "", "not-semver"} {
		t.Run(v, func(t *testing.T) {
			src := &fakeSource{}
			u, _ := newTestUpdater(t, src, v)

			checked := false
			u.On(EventChecking, func(any) { checked = true })

			assert.ErrorIs(t, u.CheckForUpdates(context.Background()), ErrDevBuild)
			assert.False(t, checked)
			assert.Zero(t, src.calls)
		})
	}
}

func TestCheckForUpdatesSupersedesInFlightCheck(t *testing.T) {
	fs := newFeedServer(t)
	firstStarted := make(chan struct{})
	src := &fakeSource{
		releases: []selfupdate.SourceRelease{
			release("v1.1.0", false, false, map[string]string{
				"latest.yml": fs.put("/latest.yml", channelYAML("1.1.0", "a.exe", []byte("a"))),
			}),
		},
		block: func(ctx context.Context, call int) error {
			if call == 1 {
				close(firstStarted)
				<-ctx.Done()
				return ctx.Err()
			}
			return nil
		},
	}
	u, _ := newTestUpdater(t, src, "1.0.0")

	var mu sync.Mutex
	var errs []any
	u.On(EventError, func(p any) {
		mu.Lock()
		errs = append(errs, p)
		mu.Unlock()
	})

	require.NoError(t, u.CheckForUpdates(context.Background()))
	<-firstStarted

	available := waitEvent(t, u, EventAvailable)
	require.NoError(t, u.CheckForUpdates(context.Background()))
	available()

	// Give the cancelled first check time to return and be discarded.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, errs)
}

func TestDownloadUpdateVerifiesAndStages(t *testing.T) {
	fs := newFeedServer(t)
	pkg := []byte("signmeup installer payload 1.1.0")
	src := &fakeSource{releases: []selfupdate.SourceRelease{
		release("v1.1.0", false, false, map[string]string{
			"latest.yml":               fs.put("/latest.yml", channelYAML("1.1.0", "SignMeUp-Setup-1.1.0.exe", pkg)),
			"SignMeUp-Setup-1.1.0.exe": fs.put("/SignMeUp-Setup-1.1.0.exe", pkg),
		}),
	}}
	u, inst := newTestUpdater(t, src, "1.0.0")

	available := waitEvent(t, u, EventAvailable)
	require.NoError(t, u.CheckForUpdates(context.Background()))
	available()

	assert.ErrorIs(t, u.QuitAndInstall(context.Background()), ErrNotDownloaded)

	var mu sync.Mutex
	var progress []ProgressInfo
	u.On(EventProgress, func(p any) {
		mu.Lock()
		progress = append(progress, p.(ProgressInfo))
		mu.Unlock()
	})
	downloaded := waitEvent(t, u, EventDownloaded)

	require.NoError(t, u.DownloadUpdate(context.Background()))
	info := downloaded().(UpdateInfo)
	assert.Equal(t, "1.1.0", info.Version)

	mu.Lock()
	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	mu.Unlock()
	assert.Equal(t, int64(len(pkg)), last.Transferred)
	assert.Equal(t, int64(len(pkg)), last.Total)
	assert.InDelta(t, 100.0, last.Percent, 0.001)

	path, staged, ok := u.Staged()
	require.True(t, ok)
	assert.Equal(t, "1.1.0", staged.Version)
	assert.Equal(t, "SignMeUp-Setup-1.1.0.exe", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pkg, data)

	require.NoError(t, u.QuitAndInstall(context.Background()))
	assert.Equal(t, []string{path}, inst.packages)
}

func TestDownloadUpdateChecksumMismatch(t *testing.T) {
	fs := newFeedServer(t)
	src := &fakeSource{releases: []selfupdate.SourceRelease{
		release("v1.1.0", false, false, map[string]string{
			"latest.yml":               fs.put("/latest.yml", channelYAML("1.1.0", "SignMeUp-Setup-1.1.0.exe", []byte("expected"))),
			"SignMeUp-Setup-1.1.0.exe": fs.put("/SignMeUp-Setup-1.1.0.exe", []byte("tampered")),
		}),
	}}
	u, _ := newTestUpdater(t, src, "1.0.0")

	available := waitEvent(t, u, EventAvailable)
	require.NoError(t, u.CheckForUpdates(context.Background()))
	available()

	failed := waitEvent(t, u, EventError)
	err := u.DownloadUpdate(context.Background())
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.ErrorIs(t, failed().(error), ErrChecksumMismatch)

	_, _, ok := u.Staged()
	assert.False(t, ok)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Owner: "o", Repo: "r"})
	assert.Error(t, err)

	_, err = New(Config{Source: &fakeSource{}})
	assert.ErrorIs(t, err, selfupdate.ErrInvalidSlug)
}

func TestCheckOutlivesCallerContext(t *testing.T) {
	fs := newFeedServer(t)
	proceed := make(chan struct{})
	src := &fakeSource{
		releases: []selfupdate.SourceRelease{
			release("v1.1.0", false, false, map[string]string{
				"latest.yml": fs.put("/latest.yml", channelYAML("1.1.0", "a.exe", []byte("a"))),
			}),
		},
		block: func(ctx context.Context, _ int) error {
			select {
			case <-proceed:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	u, _ := newTestUpdater(t, src, "1.0.0")

	var mu sync.Mutex
	var errs []any
	u.On(EventError, func(p any) {
		mu.Lock()
		errs = append(errs, p)
		mu.Unlock()
	})
	available := waitEvent(t, u, EventAvailable)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, u.CheckForUpdates(ctx))
	cancel()

	time.Sleep(30 * time.Millisecond)
	close(proceed)

	info := available().(UpdateInfo)
	assert.Equal(t, "1.1.0", info.Version)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, errs)
}

func TestStagedName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/v1.1.0/SignMeUp-Setup-1.1.0.exe", "SignMeUp-Setup-1.1.0.exe"},
		{"https://example.com/dl/SignMeUp-Setup-1.1.0.exe?token=x&y=1", "SignMeUp-Setup-1.1.0.exe"},
		{"https://example.com/dl/My%20App%201.1.0.exe", "My App 1.1.0.exe"},
		{"https://example.com/dl/a.dmg#frag", "a.dmg"},
		{"https://example.com/", "update.pkg"},
		{"https://example.com", "update.pkg"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, stagedName(tt.url))
		})
	}
}
