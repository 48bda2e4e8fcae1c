package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// EnsureUserConfig guarantees a config file exists under dataDir. A shipped
// default file is copied when present; otherwise the built-in defaults are
// written out so the engine always starts.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if defaultPath != "" {
		if src, err := os.Open(defaultPath); err == nil {
			defer src.Close()
			dst, err := os.Create(userPath)
			if err != nil {
				return "", err
			}
			defer dst.Close()
			if _, err := io.Copy(dst, src); err != nil {
				return "", err
			}
			return userPath, nil
		}
	}

	if err := SaveAtomic(userPath, Default()); err != nil {
		return "", err
	}
	return userPath, nil
}
