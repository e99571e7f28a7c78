// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package repository implements the on-disk credential repository: existence
// checks, initialization from a seed directory, root-file enumeration and
// timestamped backups. All filesystem access goes through afero so the
// store can run against an in-memory filesystem in tests.
package repository // import "github.com/toeirei/keyrepo/internal/repository"

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/toeirei/keyrepo/internal/logging"
	"github.com/toeirei/keyrepo/internal/model"
)

// TimestampLayout names backup snapshot directories (UTC, ISO 8601 basic
// format). It sorts chronologically and contains no characters that are
// invalid in Windows file names.
const TimestampLayout = "20060102T150405.000000000Z"

// DirMode is used for every directory the store creates.
const DirMode os.FileMode = 0o700

// Store is the filesystem-backed repository store.
type Store struct {
	fs     afero.Fs
	copier TreeCopier
	now    func() time.Time
	log    logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to name backup snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCopier overrides the tree copier used to seed new repositories.
func WithCopier(c TreeCopier) Option {
	return func(s *Store) { s.copier = c }
}

// WithLogger sets the logger for per-file debug output.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a store over fs. A nil fs means the host filesystem.
func New(fs afero.Fs, opts ...Option) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	s := &Store{
		fs:  fs,
		now: time.Now,
		log: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.copier == nil {
		s.copier = FsCopier{Fs: fs}
	}
	return s
}

// Fs exposes the underlying filesystem so generators can share it.
func (s *Store) Fs() afero.Fs { return s.fs }

// Exists reports whether path exists. Stat failures other than "not
// found" are reported as existing so init never overwrites a path it
// cannot inspect.
func (s *Store) Exists(path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

// Initialize creates a new repository at path with its base/ and backup/
// subdirectories, seeding path and path/base from baseDir when given.
// An existing path is never touched.
func (s *Store) Initialize(path, baseDir string) error {
	const op = "init"
	if s.Exists(path) {
		return model.E(model.KindAlreadyExists, op, path, nil)
	}
	if baseDir != "" {
		info, err := s.fs.Stat(baseDir)
		if err != nil {
			return model.E(model.KindStorage, op, baseDir, err)
		}
		if !info.IsDir() {
			return model.Errorf(model.KindStorage, op, baseDir, "base is not a directory")
		}
		inside, err := within(baseDir, path)
		if err != nil {
			return model.E(model.KindStorage, op, path, err)
		}
		if inside {
			return model.Errorf(model.KindStorage, op, path, "repository cannot be created inside its base directory %s", baseDir)
		}
	}

	if err := s.fs.MkdirAll(path, DirMode); err != nil {
		return model.E(model.KindStorage, op, path, err)
	}
	for _, sub := range []string{model.BaseDir, model.BackupDir} {
		dir := filepath.Join(path, sub)
		if err := s.fs.Mkdir(dir, DirMode); err != nil {
			return model.E(model.KindStorage, op, dir, err)
		}
	}

	if baseDir == "" {
		return nil
	}
	for _, dst := range []string{path, filepath.Join(path, model.BaseDir)} {
		s.log.Debugf("seeding %s from %s", dst, baseDir)
		if err := s.copier.Copy(baseDir, dst); err != nil {
			return model.E(model.KindStorage, op, dst, err)
		}
	}
	return nil
}

// RootFiles returns the names of the regular files directly inside path,
// sorted by name. Subdirectories are skipped, never recursed into.
func (s *Store) RootFiles(path string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, path)
	if err != nil {
		return nil, model.E(model.KindStorage, "list", path, err)
	}
	var names []string
	for _, e := range entries {
		if e.Mode().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Backup copies every root-level regular file of path into a new
// backup/<timestamp>/ directory. With no root files it does nothing and
// returns an empty record. A failure on any file aborts the backup; the
// record returned alongside the error lists what was copied so far.
func (s *Store) Backup(path string) (model.BackupRecord, error) {
	const op = "backup"
	names, err := s.RootFiles(path)
	if err != nil {
		return model.BackupRecord{}, err
	}
	if len(names) == 0 {
		return model.BackupRecord{}, nil
	}

	dir := filepath.Join(path, model.BackupDir, s.now().UTC().Format(TimestampLayout))
	if _, err := s.fs.Stat(dir); err == nil {
		return model.BackupRecord{}, model.Errorf(model.KindStorage, op, dir, "snapshot already exists")
	}
	if err := s.fs.MkdirAll(dir, DirMode); err != nil {
		return model.BackupRecord{}, model.E(model.KindStorage, op, dir, err)
	}

	copied := make([]string, 0, len(names))
	for _, name := range names {
		src := filepath.Join(path, name)
		dst := filepath.Join(dir, name)
		if err := copyFile(s.fs, src, dst); err != nil {
			return model.NewBackupRecord(dir, copied), model.E(model.KindStorage, op, src, err)
		}
		s.log.Debugf("backed up %s", dst)
		copied = append(copied, dst)
	}
	return model.NewBackupRecord(dir, copied), nil
}

// within reports whether child is parent itself or lies below it.
func within(parent, child string) (bool, error) {
	p, err := filepath.Abs(parent)
	if err != nil {
		return false, err
	}
	c, err := filepath.Abs(child)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(p, c)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}

// copyFile copies src to dst, keeping the source permission bits.
func copyFile(fs afero.Fs, src, dst string) (err error) {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dst, cerr)
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
