package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrManifest is wrapped by every manifest loading failure.
var ErrManifest = errors.New("invalid package.json")

// PublishTarget is one entry of build.publish in package.json.
type PublishTarget struct {
	Provider string `json:"provider"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
}

// Manifest holds the package.json fields the publisher reads.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Build   struct {
		Publish publishTargets `json:"publish"`
	} `json:"build"`
}

// publishTargets accepts electron-builder's single-object and list forms.
type publishTargets []PublishTarget

func (p *publishTargets) UnmarshalJSON(data []byte) error {
	var list []PublishTarget
	if err := json.Unmarshal(data, &list); err == nil {
		*p = list
		return nil
	}
	var one PublishTarget
	if err := json.Unmarshal(data, &one); err == nil {
		*p = []PublishTarget{one}
		return nil
	}
	// Provider shorthands like "github" carry no owner or repo.
	*p = nil
	return nil
}

// DefaultTarget returns build.publish[0], if any.
func (m Manifest) DefaultTarget() (PublishTarget, bool) {
	if len(m.Build.Publish) == 0 {
		return PublishTarget{}, false
	}
	return m.Build.Publish[0], true
}

// LoadManifest reads package.json from dir.
func LoadManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %s: %w", ErrManifest, path, err)
	}
	m.Version = strings.TrimSpace(m.Version)
	if m.Version == "" {
		return Manifest{}, fmt.Errorf("%w: %s has no version", ErrManifest, path)
	}
	return m, nil
}
