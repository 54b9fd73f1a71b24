package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Layers lists the files a config called name is assembled from, lowest priority first.
// "config.json5" is overridden by "config.local.json5".
func Layers(name string) []string {
	ext := filepath.Ext(name)
	return []string{name, strings.TrimSuffix(name, ext) + ".local" + ext}
}

// readLayer decodes one json5 file, ok is false when the file is absent or empty.
func readLayer[T any](path string) (layer T, ok bool, err error) {
	buf, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return layer, false, nil
	}
	if err != nil {
		return layer, false, err
	}
	if len(buf) == 0 {
		return layer, false, nil
	}
	err = json5.Unmarshal(buf, &layer)
	if err != nil {
		return layer, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return layer, true, nil
}

// ReadConfig merges every layer of name that exists, later layers override the non-zero fields of
// earlier ones. The error wraps os.ErrNotExist when no layer exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := 0
	for _, path := range Layers(name) {
		layer, ok, err := readLayer[T](path)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		if found > 0 {
			slog.Debug("merged config override", "path", path)
		}
		found++
	}
	if found == 0 {
		return out, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return out, nil
}

// ReadWithDefaults is ReadConfig with defaults as the bottom layer, every field left zero by the
// files is taken from defaults. Missing files are not an error.
func ReadWithDefaults[T any](name string, defaults T) (T, error) {
	config, err := ReadConfig[T](name)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return config, err
	}
	err = mergo.Merge(&config, defaults)
	if err != nil {
		return config, fmt.Errorf("apply defaults: %w", err)
	}
	return config, nil
}

// FindUp walks from dir towards the filesystem root and returns the first path dir/name for which
// any layer exists.
func FindUp(dir, name string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		for _, path := range Layers(candidate) {
			if _, err := os.Stat(path); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s: %w", name, os.ErrNotExist)
		}
		dir = parent
	}
}

// ReadNearest reads the config called name found closest to the working directory.
func ReadNearest[T any](name string) (T, error) {
	var out T
	wd, err := os.Getwd()
	if err != nil {
		return out, err
	}
	path, err := FindUp(wd, name)
	if err != nil {
		return out, err
	}
	return ReadConfig[T](path)
}
