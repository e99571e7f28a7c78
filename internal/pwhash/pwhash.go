// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pwhash writes the repository's random secret token (pw.hash).
// Despite the file name, the content is a random alphanumeric string, not
// a password hash.
package pwhash // import "github.com/toeirei/keyrepo/internal/pwhash"

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/toeirei/keyrepo/internal/model"
	"github.com/toeirei/keyrepo/internal/repository"
	"github.com/toeirei/keyrepo/internal/security"
)

const (
	DefaultSize     = 32
	DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Generator creates the secret file.
type Generator struct {
	Fs         afero.Fs
	Size       int
	Alphabet   string
	Rand       io.Reader
	Restrictor repository.Restrictor
}

// New returns a generator with the default size and alphabet.
func New(fs afero.Fs, r repository.Restrictor) *Generator {
	return &Generator{Fs: fs, Size: DefaultSize, Alphabet: DefaultAlphabet, Rand: rand.Reader, Restrictor: r}
}

// Generate writes a fresh secret to <path>/pw.hash without a trailing
// newline and restricts it to owner-only access.
func (g *Generator) Generate(path string) error {
	const op = "pwhash"
	target := filepath.Join(path, model.SecretFile)

	secret, err := g.Token()
	if err != nil {
		return model.E(model.KindGeneration, op, target, err)
	}
	defer secret.Zero()

	if err := write(g.Fs, target, secret); err != nil {
		return model.E(model.KindGeneration, op, target, err)
	}
	if g.Restrictor != nil {
		if err := g.Restrictor.Restrict(target); err != nil {
			return model.E(model.KindGeneration, op, target, err)
		}
	}
	return nil
}

// Token returns Size characters sampled uniformly from Alphabet. Size
// counts characters, so a multi-byte alphabet yields a longer secret in
// bytes.
func (g *Generator) Token() (security.Secret, error) {
	size, alphabet, src := g.Size, g.Alphabet, g.Rand
	if size <= 0 {
		size = DefaultSize
	}
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if src == nil {
		src = rand.Reader
	}
	if !utf8.ValidString(alphabet) {
		return nil, errors.New("alphabet is not valid UTF-8")
	}

	chars := []rune(alphabet)
	width := 1
	for _, c := range chars {
		width = max(width, utf8.RuneLen(c))
	}
	limit := big.NewInt(int64(len(chars)))
	out := make(security.Secret, 0, size*width)
	for range size {
		n, err := rand.Int(src, limit)
		if err != nil {
			out.Zero()
			return nil, fmt.Errorf("read random source: %w", err)
		}
		out = utf8.AppendRune(out, chars[n.Int64()])
	}
	return out, nil
}

func write(fs afero.Fs, path string, secret security.Secret) (err error) {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = secret.WriteTo(f)
	return err
}
