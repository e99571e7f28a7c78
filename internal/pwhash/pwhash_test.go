// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package pwhash

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/toeirei/keyrepo/internal/model"
	"github.com/toeirei/keyrepo/internal/repository"
)

func TestGenerate_DefaultSizeAndAlphabet(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = fs.MkdirAll("/repo", 0o700)
	g := New(fs, repository.ModeRestrictor{Fs: fs, GOOS: "linux"})

	if err := g.Generate("/repo"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := afero.ReadFile(fs, "/repo/pw.hash")
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != DefaultSize {
		t.Fatalf("len = %d, want %d", len(b), DefaultSize)
	}
	for _, c := range string(b) {
		if !strings.ContainsRune(DefaultAlphabet, c) {
			t.Fatalf("character %q outside alphabet", c)
		}
	}
	if strings.HasSuffix(string(b), "\n") {
		t.Fatal("secret must not end with a newline")
	}
	info, _ := fs.Stat("/repo/pw.hash")
	if info.Mode().Perm() != repository.OwnerOnly {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
}

func TestGenerate_ConfiguredSizeAndAlphabet(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := &Generator{Fs: fs, Size: 64, Alphabet: "ab"}
	if err := g.Generate("/r"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, _ := afero.ReadFile(fs, "/r/pw.hash")
	if len(b) != 64 {
		t.Fatalf("len = %d", len(b))
	}
	if strings.Trim(string(b), "ab") != "" {
		t.Fatalf("unexpected characters in %q", b)
	}
}

func TestToken_MultiByteAlphabet(t *testing.T) {
	g := &Generator{Size: 32, Alphabet: "äöü"}
	tok, err := g.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	b := tok.Bytes()
	if !utf8.Valid(b) {
		t.Fatalf("token is not valid UTF-8: %q", b)
	}
	if n := utf8.RuneCount(b); n != 32 {
		t.Fatalf("token has %d characters, want 32", n)
	}
	for _, c := range string(b) {
		if !strings.ContainsRune("äöü", c) {
			t.Fatalf("character %q outside alphabet", c)
		}
	}
}

func TestToken_InvalidAlphabet(t *testing.T) {
	g := &Generator{Alphabet: "a\xffb"}
	if _, err := g.Token(); err == nil {
		t.Fatal("expected an error for an alphabet that is not UTF-8")
	}
}

func TestGenerate_ReplacesPreviousSecret(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/r/pw.hash", []byte(strings.Repeat("x", 100)), 0o600)
	if err := New(fs, nil).Generate("/r"); err != nil {
		t.Fatal(err)
	}
	b, _ := afero.ReadFile(fs, "/r/pw.hash")
	if len(b) != DefaultSize {
		t.Fatalf("old content not truncated, len = %d", len(b))
	}
}

func TestGenerate_UnwritableTarget(t *testing.T) {
	g := New(afero.NewReadOnlyFs(afero.NewMemMapFs()), nil)
	err := g.Generate("/r")
	if !errors.Is(err, model.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestToken_RandomSourceFailure(t *testing.T) {
	g := &Generator{Rand: iotest.ErrReader(errors.New("no entropy"))}
	if _, err := g.Token(); err == nil {
		t.Fatal("expected error from failing random source")
	}
}

func TestToken_Distinct(t *testing.T) {
	g := New(nil, nil)
	a, err := g.Token()
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Token()
	if err != nil {
		t.Fatal(err)
	}
	if string(a.Bytes()) == string(b.Bytes()) {
		t.Fatal("two tokens should differ")
	}
	if a.String() != "[SECRET]" {
		t.Fatal("token should redact when printed")
	}
}
