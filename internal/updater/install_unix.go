//go:build !windows

package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
)

// unixInstaller replaces the running AppImage or binary in place. Disk images
// and distribution packages are opened with the system handler instead.
type unixInstaller struct {
	// target overrides the file being replaced; empty means $APPIMAGE or the
	// current executable.
	target string
	// opener launches package files; empty means open(1) or xdg-open(1).
	opener string
}

func platformInstaller() Installer {
	return unixInstaller{}
}

func (u unixInstaller) Install(ctx context.Context, pkg string) error {
	if isPackageFile(pkg) {
		return u.open(pkg)
	}

	target, err := u.resolveTarget()
	if err != nil {
		return err
	}

	dir := filepath.Dir(target)
	if !dirWritable(dir) {
		return installWithSudo(ctx, pkg, target)
	}

	tmpTarget := filepath.Join(dir, ".signmeup-update-tmp")
	if err := copyFile(pkg, tmpTarget); err != nil {
		return err
	}
	if err := os.Chmod(tmpTarget, 0o755); err != nil {
		_ = os.Remove(tmpTarget)
		return err
	}
	if err := os.Rename(tmpTarget, target); err != nil {
		_ = os.Remove(tmpTarget)
		if isPermissionError(err) {
			return installWithSudo(ctx, pkg, target)
		}
		return fmt.Errorf("install failed: %w", err)
	}
	return nil
}

func (u unixInstaller) resolveTarget() (string, error) {
	if u.target != "" {
		return u.target, nil
	}
	if appImage := os.Getenv("APPIMAGE"); appImage != "" {
		return appImage, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}

func (u unixInstaller) open(pkg string) error {
	opener := u.opener
	if opener == "" {
		opener = "xdg-open"
		if runtime.GOOS == "darwin" {
			opener = "open"
		}
	}
	cmd := exec.Command(opener, pkg)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(pkg), err)
	}
	return cmd.Process.Release()
}

func installWithSudo(ctx context.Context, pkg, target string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(pkg), "signmeup-sudo-*")
	if err != nil {
		return err
	}
	tmpTarget := tmpFile.Name()
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpTarget)
		return err
	}
	defer os.Remove(tmpTarget)

	if err := copyFile(pkg, tmpTarget); err != nil {
		return err
	}
	if err := os.Chmod(tmpTarget, 0o755); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "sudo", "mv", tmpTarget, target)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sudo install failed: %w", err)
	}
	return nil
}

func isPermissionError(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			return errno == syscall.EACCES || errno == syscall.EPERM
		}
	}
	return false
}
