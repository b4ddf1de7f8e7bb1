// Package installer copies the bundled remote script into Ableton Live's
// MIDI Remote Scripts directory, where Live discovers it on restart.
package installer

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SourceDir locates the bundled remote script: either next to the executable
// or under a scripts/ directory beside it.
func SourceDir(name string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "locating executable")
	}
	base := filepath.Dir(exe)
	candidates := []string{
		filepath.Join(base, name),
		filepath.Join(base, "scripts", name),
	}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", errors.Errorf("bundled script %s not found next to executable", name)
}

// Install copies the script from srcDir into scriptsDir/name, replacing any
// existing installation.
func Install(srcDir, scriptsDir, name string) error {
	if err := os.MkdirAll(scriptsDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", scriptsDir)
	}
	target := filepath.Join(scriptsDir, name)
	if err := os.RemoveAll(target); err != nil {
		return errors.Wrapf(err, "removing existing %s", target)
	}
	if err := os.CopyFS(target, os.DirFS(srcDir)); err != nil {
		return errors.Wrapf(err, "copying script to %s", target)
	}
	return nil
}

// Uninstall removes the installed script. Removing a script that is not
// installed is not an error.
func Uninstall(scriptsDir, name string) error {
	target := filepath.Join(scriptsDir, name)
	return errors.Wrapf(os.RemoveAll(target), "removing %s", target)
}

// IsInstalled reports whether the script directory exists and returns its
// path.
func IsInstalled(scriptsDir, name string) (bool, string) {
	target := filepath.Join(scriptsDir, name)
	info, err := os.Stat(target)
	return err == nil && info.IsDir(), target
}
