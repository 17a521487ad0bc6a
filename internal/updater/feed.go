package updater

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// UpdateFile is one downloadable package listed in a channel file.
type UpdateFile struct {
	URL    string `yaml:"url" json:"url"`
	SHA512 string `yaml:"sha512" json:"sha512"`
	Size   int64  `yaml:"size,omitempty" json:"size,omitempty"`
}

// UpdateInfo describes a published version. It is decoded from the
// electron-builder channel file (latest.yml and friends) attached to a
// release; ReleaseName and ReleaseNotes are filled from the release itself.
type UpdateInfo struct {
	Version      string       `yaml:"version" json:"version"`
	Files        []UpdateFile `yaml:"files" json:"files"`
	Path         string       `yaml:"path,omitempty" json:"path,omitempty"`
	SHA512       string       `yaml:"sha512,omitempty" json:"sha512,omitempty"`
	ReleaseDate  string       `yaml:"releaseDate,omitempty" json:"releaseDate,omitempty"`
	ReleaseName  string       `yaml:"releaseName,omitempty" json:"releaseName,omitempty"`
	ReleaseNotes string       `yaml:"releaseNotes,omitempty" json:"releaseNotes,omitempty"`
}

// ProgressInfo is the payload of EventProgress.
type ProgressInfo struct {
	Total          int64   `json:"total"`
	Transferred    int64   `json:"transferred"`
	Percent        float64 `json:"percent"`
	BytesPerSecond int64   `json:"bytesPerSecond"`
}

var errEmptyChannelFile = errors.New("channel file has no version")

// ChannelFile returns the channel file name published for goos.
func ChannelFile(goos string) string {
	switch goos {
	case "darwin":
		return "latest-mac.yml"
	case "linux":
		return "latest-linux.yml"
	default:
		return "latest.yml"
	}
}

// ParseUpdateInfo decodes a channel file.
func ParseUpdateInfo(data []byte) (UpdateInfo, error) {
	var info UpdateInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return UpdateInfo{}, fmt.Errorf("parse channel file: %w", err)
	}
	info.Version = strings.TrimSpace(info.Version)
	if info.Version == "" {
		return UpdateInfo{}, errEmptyChannelFile
	}
	if _, err := semver.NewVersion(info.Version); err != nil {
		return UpdateInfo{}, fmt.Errorf("parse channel file: invalid version %q: %w", info.Version, err)
	}
	return info, nil
}

// PrimaryFile returns the package to download. Older channel files only carry
// the top-level path and sha512.
func (i UpdateInfo) PrimaryFile() (UpdateFile, bool) {
	if len(i.Files) > 0 && i.Files[0].URL != "" {
		return i.Files[0], true
	}
	if i.Path != "" {
		return UpdateFile{URL: i.Path, SHA512: i.SHA512}, true
	}
	return UpdateFile{}, false
}

// resolveFileURL turns the url of an UpdateFile into an absolute download
// URL. Absolute URLs are kept; names are looked up among the release assets
// (GitHub replaces spaces with dashes on upload) and finally resolved against
// the channel file location.
func resolveFileURL(ref string, assets map[string]string, channelURL string) (string, error) {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref, nil
	}

	name := path.Base(ref)
	if u, ok := assets[name]; ok {
		return u, nil
	}
	if u, ok := assets[strings.ReplaceAll(name, " ", "-")]; ok {
		return u, nil
	}

	base, err := url.Parse(channelURL)
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("cannot resolve download url for %q", ref)
	}
	rel, err := url.Parse(url.PathEscape(name))
	if err != nil {
		return "", fmt.Errorf("cannot resolve download url for %q: %w", ref, err)
	}
	return base.ResolveReference(rel).String(), nil
}
