package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleChannelFile = `version: 1.0.2
files:
  - url: SignMeUp-Setup-1.0.2.exe
    sha512: 3Yq0bW3c2sWq9f0pY3m9b6oX3Lw==
    size: 73812345
path: SignMeUp-Setup-1.0.2.exe
sha512: 3Yq0bW3c2sWq9f0pY3m9b6oX3Lw==
releaseDate: '2026-03-02T10:15:00.000Z'
`

func TestParseUpdateInfo(t *testing.T) {
	info, err := ParseUpdateInfo([]byte(sampleChannelFile))
	require.NoError(t, err)

	assert.Equal(t, "1.0.2", info.Version)
	require.Len(t, info.Files, 1)
	assert.Equal(t, "SignMeUp-Setup-1.0.2.exe", info.Files[0].URL)
	assert.Equal(t, int64(73812345), info.Files[0].Size)
	assert.Equal(t, "2026-03-02T10:15:00.000Z", info.ReleaseDate)

	file, ok := info.PrimaryFile()
	require.True(t, ok)
	assert.Equal(t, info.Files[0], file)
}

func TestParseUpdateInfoRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "missing version", data: "files: []\n"},
		{name: "bad version", data: "version: not-a-version\n"},
		{name: "bad yaml", data: "version: [1.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUpdateInfo([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestPrimaryFileFallsBackToPath(t *testing.T) {
	info := UpdateInfo{Version: "1.0.0", Path: "app.AppImage", SHA512: "abc"}
	file, ok := info.PrimaryFile()
	require.True(t, ok)
	assert.Equal(t, UpdateFile{URL: "app.AppImage", SHA512: "abc"}, file)

	_, ok = UpdateInfo{Version: "1.0.0"}.PrimaryFile()
	assert.False(t, ok)
}

func TestChannelFile(t *testing.T) {
	assert.Equal(t, "latest.yml", ChannelFile("windows"))
	assert.Equal(t, "latest-mac.yml", ChannelFile("darwin"))
	assert.Equal(t, "latest-linux.yml", ChannelFile("linux"))
}

func TestResolveFileURL(t *testing.T) {
	assets := map[string]string{
		"SignMeUp-Setup-1.0.2.exe": "https://github.com/o/r/releases/download/v1.0.2/SignMeUp-Setup-1.0.2.exe",
	}
	channel := "https://github.com/o/r/releases/download/v1.0.2/latest.yml"

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{name: "absolute", ref: "https://cdn.example.com/app.exe", want: "https://cdn.example.com/app.exe"},
		{name: "asset name", ref: "SignMeUp-Setup-1.0.2.exe", want: assets["SignMeUp-Setup-1.0.2.exe"]},
		{name: "spaces become dashes", ref: "SignMeUp Setup 1.0.2.exe", want: assets["SignMeUp-Setup-1.0.2.exe"]},
		{name: "relative to channel file", ref: "other.zip", want: "https://github.com/o/r/releases/download/v1.0.2/other.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveFileURL(tt.ref, assets, channel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := resolveFileURL("x.exe", nil, "latest.yml")
	assert.Error(t, err)
}
