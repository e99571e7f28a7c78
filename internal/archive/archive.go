// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package archive packs repository files into a Zstandard-compressed tar
// stream for moving a repository between machines.
package archive // import "github.com/toeirei/keyrepo/internal/archive"

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// Extension is appended to export file names that lack it.
const Extension = ".tar.zst"

// Entry describes one file in an archive.
type Entry struct {
	Name    string
	Size    int64
	Mode    int64
	ModTime time.Time
}

// Export writes the files root/<name> for every name to w as tar+zstd.
// Names are stored without directories. It returns the number of files
// written.
func Export(fs afero.Fs, root string, names []string, w io.Writer) (n int, err error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("could not create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)
	defer func() {
		if cerr := tw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("could not finish tar stream: %w", cerr)
		}
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("could not finish zstd stream: %w", cerr)
		}
	}()

	for _, name := range names {
		if err := addFile(fs, tw, filepath.Join(root, name), name); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func addFile(fs afero.Fs, tw *tar.Writer, path, name string) error {
	f, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("could not stat %s: %w", path, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("could not write header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("could not write %s: %w", name, err)
	}
	return nil
}

// List returns the entries of a tar+zstd stream.
func List(r io.Reader) ([]Entry, error) {
	var out []Entry
	err := walk(r, func(hdr *tar.Header, _ io.Reader) error {
		out = append(out, Entry{Name: hdr.Name, Size: hdr.Size, Mode: hdr.Mode, ModTime: hdr.ModTime})
		return nil
	})
	return out, err
}

// ReadFile returns the content of name from a tar+zstd stream.
func ReadFile(r io.Reader, name string) ([]byte, error) {
	var data []byte
	found := false
	err := walk(r, func(hdr *tar.Header, body io.Reader) error {
		if hdr.Name != name || found {
			return nil
		}
		found = true
		var err error
		data, err = io.ReadAll(body)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s not found in archive", name)
	}
	return data, nil
}

func walk(r io.Reader, fn func(*tar.Header, io.Reader) error) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read archive: %w", err)
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}
