// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package repository

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/toeirei/keyrepo/internal/model"
)

// Snapshot is one backup/<timestamp>/ directory.
type Snapshot struct {
	Name  string
	Path  string
	Time  time.Time // zero when Name is not a snapshot timestamp
	Files int
}

// Snapshots lists the backup snapshots of the repository at path, oldest
// first. A repository without a backup directory has no snapshots.
func (s *Store) Snapshots(path string) ([]Snapshot, error) {
	root := filepath.Join(path, model.BackupDir)
	entries, err := afero.ReadDir(s.fs, root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, model.E(model.KindStorage, "snapshots", root, err)
	}

	var out []Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		files, err := s.RootFiles(dir)
		if err != nil {
			return nil, err
		}
		snap := Snapshot{Name: e.Name(), Path: dir, Files: len(files)}
		if ts, err := time.Parse(TimestampLayout, e.Name()); err == nil {
			snap.Time = ts
		}
		out = append(out, snap)
	}
	return out, nil
}
