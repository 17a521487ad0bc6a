// Package publish ensures a tagged GitHub release exists for the version in
// package.json and uploads build artifacts to it, replacing assets that
// already carry the same name.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"github.com/smeup/signmeup-client/internal/config"
)

const (
	// DistDir is scanned for artifacts when no assets are given.
	DistDir = "dist"
	// ChannelFileName is always published alongside versioned artifacts.
	ChannelFileName = "latest.yml"

	assetMediaType = "application/octet-stream"
)

// ErrMissingToken is returned before any network call when no credential is set.
var ErrMissingToken = errors.New("GITHUB_TOKEN or GH_TOKEN environment variable is required")

// ReleasesAPI is the subset of the GitHub releases API the publisher uses.
// *github.RepositoriesService satisfies it.
type ReleasesAPI interface {
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*github.RepositoryRelease, *github.Response, error)
	CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, *github.Response, error)
	ListReleaseAssets(ctx context.Context, owner, repo string, id int64, opts *github.ListOptions) ([]*github.ReleaseAsset, *github.Response, error)
	DeleteReleaseAsset(ctx context.Context, owner, repo string, id int64) (*github.Response, error)
	UploadReleaseAsset(ctx context.Context, owner, repo string, id int64, opts *github.UploadOptions, file *os.File) (*github.ReleaseAsset, *github.Response, error)
}

var _ ReleasesAPI = (*github.RepositoriesService)(nil)

// NewClient returns a GitHub client authenticated with token. apiURL selects
// a GitHub Enterprise server and may be empty.
func NewClient(ctx context.Context, token, apiURL string) (*github.Client, error) {
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	client := github.NewClient(hc)
	if apiURL == "" {
		return client, nil
	}
	return client.WithEnterpriseURLs(apiURL, apiURL)
}

// Descriptor is the fully resolved release to publish.
type Descriptor struct {
	Owner  string
	Repo   string
	Tag    string
	Title  string
	Notes  string
	Assets []string
	// Version is the manifest version used for asset discovery.
	Version string
}

// Resolve applies defaults: flags first, then build.publish[0] from the
// manifest, then the built-in owner and repository.
func Resolve(args Args, m Manifest) Descriptor {
	target, _ := m.DefaultTarget()
	tag := "v" + m.Version

	return Descriptor{
		Owner:   firstNonEmpty(args.Owner, target.Owner, config.DefaultOwner),
		Repo:    firstNonEmpty(args.Repo, target.Repo, config.DefaultRepo),
		Tag:     tag,
		Title:   firstNonEmpty(args.Title, tag),
		Notes:   firstNonEmpty(args.Notes, "Release "+tag),
		Assets:  args.Assets,
		Version: m.Version,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DiscoverAssets lists regular files in dir whose name contains version or
// equals latest.yml, in directory order. A missing dir yields no assets.
func DiscoverAssets(dir, version string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var assets []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, version) || name == ChannelFileName {
			assets = append(assets, filepath.Join(dir, name))
		}
	}
	return assets, nil
}

// Result summarizes a run.
type Result struct {
	Release  *github.RepositoryRelease
	Created  bool
	Uploaded []string
	Skipped  []string
}

// Publisher drives one release run against the API.
type Publisher struct {
	api    ReleasesAPI
	logger *log.Logger
}

// New returns a Publisher using api.
func New(api ReleasesAPI, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Publisher{api: api, logger: logger}
}

// Publish ensures the release exists and uploads d.Assets one at a time in
// order. When d.Assets is empty, workDir/dist is scanned. An empty final
// list is not an error. The first failing upload aborts the run.
func (p *Publisher) Publish(ctx context.Context, d Descriptor, workDir string) (Result, error) {
	var res Result

	if _, err := semver.NewVersion(d.Version); err != nil {
		p.logger.Warn("version is not semver; update clients will ignore this release", "version", d.Version)
	}

	release, created, err := p.ensureRelease(ctx, d)
	if err != nil {
		return res, err
	}
	res.Release, res.Created = release, created

	assets := d.Assets
	if len(assets) == 0 {
		assets, err = DiscoverAssets(filepath.Join(workDir, DistDir), d.Version)
		if err != nil {
			return res, err
		}
	}
	if len(assets) == 0 {
		p.logger.Warn("No assets to upload. Provide --assets or ensure dist/ has artifacts.")
		return res, nil
	}

	for _, path := range assets {
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			p.logger.Warn("Asset not found, skipping", "path", path)
			res.Skipped = append(res.Skipped, path)
			continue
		}

		name := filepath.Base(path)
		p.deleteExisting(ctx, d, release.GetID(), name)

		p.logger.Info("Uploading", "name", name, "size", info.Size())
		if err := p.upload(ctx, d, release.GetID(), path, name); err != nil {
			return res, fmt.Errorf("upload %s: %w", name, err)
		}
		p.logger.Info("Uploaded", "name", name)
		res.Uploaded = append(res.Uploaded, name)
	}

	p.logger.Info("Release done", "repo", d.Owner+"/"+d.Repo, "tag", d.Tag)
	return res, nil
}

func (p *Publisher) ensureRelease(ctx context.Context, d Descriptor) (*github.RepositoryRelease, bool, error) {
	release, resp, err := p.api.GetReleaseByTag(ctx, d.Owner, d.Repo, d.Tag)
	if err == nil {
		p.logger.Info("Found existing release", "tag", d.Tag)
		return release, false, nil
	}
	if !isNotFound(resp, err) {
		return nil, false, fmt.Errorf("get release %s: %w", d.Tag, err)
	}

	p.logger.Info("Creating release", "tag", d.Tag)
	release, _, err = p.api.CreateRelease(ctx, d.Owner, d.Repo, &github.RepositoryRelease{
		TagName:    github.Ptr(d.Tag),
		Name:       github.Ptr(d.Title),
		Body:       github.Ptr(d.Notes),
		Draft:      github.Ptr(false),
		Prerelease: github.Ptr(false),
	})
	if err != nil {
		return nil, false, fmt.Errorf("create release %s: %w", d.Tag, err)
	}
	return release, true, nil
}

func isNotFound(resp *github.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var errResp *github.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}

// deleteExisting removes a same-named asset. Failures are logged and
// otherwise ignored; a real problem surfaces in the following upload.
func (p *Publisher) deleteExisting(ctx context.Context, d Descriptor, releaseID int64, name string) {
	opts := &github.ListOptions{PerPage: 100}
	for {
		assets, resp, err := p.api.ListReleaseAssets(ctx, d.Owner, d.Repo, releaseID, opts)
		if err != nil {
			p.logger.Debug("listing release assets failed", "err", err)
			return
		}
		for _, a := range assets {
			if a.GetName() != name {
				continue
			}
			p.logger.Info("Deleting existing asset with same name", "name", name)
			if _, err := p.api.DeleteReleaseAsset(ctx, d.Owner, d.Repo, a.GetID()); err != nil {
				p.logger.Debug("deleting release asset failed", "name", name, "err", err)
			}
			return
		}
		if resp == nil || resp.NextPage == 0 {
			return
		}
		opts.Page = resp.NextPage
	}
}

func (p *Publisher) upload(ctx context.Context, d Descriptor, releaseID int64, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _, err = p.api.UploadReleaseAsset(ctx, d.Owner, d.Repo, releaseID, &github.UploadOptions{
		Name:      name,
		MediaType: assetMediaType,
	}, f)
	return err
}

// RunOptions wires a complete release run.
type RunOptions struct {
	Args    []string
	WorkDir string
	Token   string
	// NewAPI builds the API client once the credential is known.
	NewAPI func(token string) (ReleasesAPI, error)
	Logger *log.Logger
}

// Run parses arguments, reads the manifest, checks the credential and
// publishes. Every failure is returned; the caller decides the exit status.
func Run(ctx context.Context, opts RunOptions) (Result, error) {
	args := ParseArgs(opts.Args)

	manifest, err := LoadManifest(opts.WorkDir)
	if err != nil {
		return Result{}, err
	}
	d := Resolve(args, manifest)

	if opts.Token == "" {
		return Result{}, ErrMissingToken
	}

	api, err := opts.NewAPI(opts.Token)
	if err != nil {
		return Result{}, err
	}
	return New(api, opts.Logger).Publish(ctx, d, opts.WorkDir)
}
