//go:build !windows

package autostart

import (
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

// userHome is replaced in tests.
var userHome = os.UserHomeDir

// itemPath returns the login item file for name and the template that
// renders it: a LaunchAgent on macOS, an XDG autostart entry elsewhere.
func itemPath(name string) (string, *template.Template, error) {
	home, err := userHome()
	if err != nil {
		return "", nil, err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "LaunchAgents", "com."+name+".agent.plist"), plistTmpl, nil
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "autostart", name+".desktop"), desktopTmpl, nil
}

// Enable enables auto-start on login
func Enable(e Entry) error {
	path, tmpl, err := itemPath(e.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, e)
}

// Disable disables auto-start on login
func Disable(name string) error {
	path, _, err := itemPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled checks if auto-start is enabled
func IsEnabled(name string) bool {
	path, _, err := itemPath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
