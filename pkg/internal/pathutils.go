package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDir returns the per-user configuration directory for appName.
//
// On Windows it is %APPDATA%\<appName>. Elsewhere it is
// $XDG_CONFIG_HOME/<appName>, falling back to $HOME/.config/<appName>. The
// directory is not created.
func ConfigDir(appName string) (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName), nil
		}
		return "", fmt.Errorf("APPDATA environment variable not set")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
