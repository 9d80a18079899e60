package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the outcome of one configuration load: where the file was looked
// for, the effective values, and any non-fatal warnings to surface at
// startup. Exists distinguishes a missing file (pure defaults) from a file
// that parsed to defaults.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves the config path, reads the file, and parses it over the
// built-in defaults. A missing file is not an error: the session runs on
// defaults and the caller gets a warning to print.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return defaultsFor(path), nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}

func defaultsFor(path string) Loaded {
	return Loaded{
		Path:   path,
		Config: Default(),
		Warnings: []Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		}},
	}
}
