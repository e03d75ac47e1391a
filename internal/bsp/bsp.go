// Package bsp discovers the board support packages and host platforms of a
// MeshX source tree.
package bsp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// Dir holds one directory per board support package.
	Dir = "port/bsp"
	// PlatformDir holds one directory per host platform.
	PlatformDir = "port/platform"
	// Marker is the file that makes a directory under Dir a BSP.
	Marker = "bsp.cmake"
	// ProfileName is the default product profile inside a BSP.
	ProfileName = "prod_profile.yml"
)

// List returns the BSPs under root/port/bsp, sorted by name.
func List(root string) ([]string, error) {
	dir := filepath.Join(root, Dir)
	return listDirs(dir, func(name string) bool {
		_, err := os.Stat(filepath.Join(dir, name, Marker))
		return err == nil
	})
}

// Platforms returns the host platforms under root/port/platform, sorted by name.
func Platforms(root string) ([]string, error) {
	return listDirs(filepath.Join(root, PlatformDir), nil)
}

// ProfilePath is the default profile location for a BSP.
func ProfilePath(name string) string {
	return filepath.ToSlash(filepath.Join(Dir, name, ProfileName))
}

func listDirs(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if keep != nil && !keep(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
