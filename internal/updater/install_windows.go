//go:build windows

package updater

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// windowsInstaller starts the downloaded NSIS installer detached. The
// installer closes the running application itself.
type windowsInstaller struct{}

func platformInstaller() Installer {
	return windowsInstaller{}
}

func (windowsInstaller) Install(ctx context.Context, pkg string) error {
	if !strings.EqualFold(filepath.Ext(pkg), ".exe") {
		return fmt.Errorf("unsupported update package %s", filepath.Base(pkg))
	}
	// Not bound to ctx: the installer must outlive this process.
	cmd := exec.Command(pkg, "--updated")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start installer: %w", err)
	}
	return cmd.Process.Release()
}
