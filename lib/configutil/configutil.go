// Package configutil reads json5 config files with optional local overrides and dotenv files.
package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// LocalPath returns the path of the override file for name, "thsr.json5" becomes
// "thsr.local.json5".
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

func readInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(strings.TrimSpace(string(contents))) == 0 {
		return true, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig starts from defaults and merges the following files over it, later files take
// priority and missing files are skipped.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// Zero values in a file never override, so a file only has to mention what it changes.
func ReadConfig[T any](name string, defaults T) (T, error) {
	out := defaults

	for _, path := range []string{name, LocalPath(name)} {
		var layer T
		found, err := readInto(path, &layer)
		if err != nil {
			return defaults, err
		}
		if !found {
			continue
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return defaults, fmt.Errorf("merge %s: %w", path, err)
		}
		slog.Debug("merged config file", "path", path)
	}

	return out, nil
}

// FindUpwards looks for name in the working directory and each of its parents, it returns name
// unchanged when no directory has it.
func FindUpwards(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	current, err := os.Getwd()
	if err != nil {
		return name
	}
	for {
		candidate := filepath.Join(current, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		if _, err := os.Stat(LocalPath(candidate)); err == nil {
			return candidate
		}
		parent := filepath.Dir(current)
		if parent == current {
			return name
		}
		current = parent
	}
}

// LoadEnv loads dotenv files into the process environment without replacing variables that
// are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// OverrideFromEnv replaces *dst with the value of key when it is set and not blank.
func OverrideFromEnv(dst *string, key string) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	*dst = strings.TrimSpace(value)
}
