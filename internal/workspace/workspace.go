package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pack_audit/internal/config"
)

const BaseDirName = "PackAudit"

func EnsureDefault() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return EnsureAt(filepath.Join(home, BaseDirName))
}

func EnsureAt(base string) (string, error) {
	paths := []string{
		filepath.Join(base, "configs"),
		filepath.Join(base, "reports"),
		filepath.Join(base, "history"),
	}

	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", p, err)
		}
	}

	settingsPath := ConfigPath(base)
	if _, err := os.Stat(settingsPath); errors.Is(err, fs.ErrNotExist) {
		if err := config.Save(settingsPath, config.Default()); err != nil {
			return "", fmt.Errorf("write default config: %w", err)
		}
	}

	return base, nil
}

func ConfigPath(root string) string {
	return filepath.Join(root, "configs", config.FileName)
}

func DBPath(root string) string {
	return filepath.Join(root, "history", "audit.db")
}
