package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//InSlice returns true if given string appears in given slice
func InSlice(lookingFor string, slice []string) bool {
	for _, s := range slice {
		if s == lookingFor {
			return true
		}
	}

	return false
}

//ListDir returns a list of files/ directories in given path
func ListDir(path string) ([]string, error) {
	names := make([]string, 0)
	if entries, err := os.ReadDir(path); err != nil {
		return nil, fmt.Errorf("ListDir: Error, got '%v'", err)
	} else {
		for _, e := range entries {
			names = append(names, e.Name())
		}
	}

	return names, nil
}

//HasImageExt returns true if given file name ends with one of ImageExtensions (case insensitive)
func HasImageExt(name string) bool {
	return InSlice(strings.ToLower(filepath.Ext(name)), ImageExtensions)
}

//BaseName returns the file name of given path without directories and extension
func BaseName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

//EnsureDirs creates every missing directory in given list
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0766); err != nil {
			return fmt.Errorf("EnsureDirs: Error creating '%s' directory, got '%v'", dir, err)
		}
	}

	return nil
}
