package updater

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Installer applies a downloaded update package.
type Installer interface {
	Install(ctx context.Context, pkg string) error
}

// DefaultInstaller returns the installer for the current platform.
func DefaultInstaller() Installer {
	return platformInstaller()
}

// isPackageFile reports whether pkg must be handed to the system instead of
// replacing the running executable.
func isPackageFile(pkg string) bool {
	switch strings.ToLower(filepath.Ext(pkg)) {
	case ".dmg", ".pkg", ".zip", ".deb", ".rpm", ".exe", ".msi":
		return true
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".signmeup-write-test-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
