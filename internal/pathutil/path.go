// Package pathutil checks the directories the daemon writes to.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

const writeTestName = ".huntarr-write-test"

// CheckDirectoryWritable creates path when missing and verifies a file can be
// written inside it.
func CheckDirectoryWritable(fsys afero.Fs, path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	info, err := fsys.Stat(absPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := fsys.MkdirAll(absPath, 0755); err != nil {
			return fmt.Errorf("directory %s does not exist and cannot be created: %w", absPath, err)
		}
	case err != nil:
		return fmt.Errorf("cannot access directory %s: %w", absPath, err)
	case !info.IsDir():
		return fmt.Errorf("path %s exists but is not a directory", absPath)
	}

	testFile := filepath.Join(absPath, writeTestName)
	if err := afero.WriteFile(fsys, testFile, []byte("test"), 0644); err != nil {
		return fmt.Errorf("directory %s is not writable: %w", absPath, err)
	}
	_ = fsys.Remove(testFile)

	return nil
}

// CheckFileDirectoryWritable checks the parent directory of filePath. An empty
// path is accepted.
func CheckFileDirectoryWritable(fsys afero.Fs, filePath, kind string) error {
	if filePath == "" {
		return nil
	}

	dir := filepath.Dir(filePath)
	if dir == "" {
		dir = "."
	}

	if err := CheckDirectoryWritable(fsys, dir); err != nil {
		return fmt.Errorf("%s file directory check failed: %w", kind, err)
	}

	return nil
}
