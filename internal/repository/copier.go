// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package repository

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// TreeCopier recursively copies the contents of one directory into another.
type TreeCopier interface {
	Copy(src, dst string) error
}

// FsCopier copies directory trees within a single afero filesystem.
// Only directories and regular files are copied; symlinks and devices are
// skipped.
type FsCopier struct {
	Fs afero.Fs
}

// Copy copies the contents of src (not src itself) into dst, creating
// dst if needed. Existing files in dst are overwritten.
func (c FsCopier) Copy(src, dst string) error {
	return afero.Walk(c.Fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case info.IsDir():
			return c.Fs.MkdirAll(target, info.Mode().Perm()|DirMode)
		case info.Mode().IsRegular():
			return copyFile(c.Fs, p, target)
		}
		return nil
	})
}
