// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"errors"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/toeirei/keyrepo/internal/model"
)

func TestNewConfiguration_Defaults(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("HOME is not consulted on windows")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := NewConfiguration(Options{})
	if err != nil {
		t.Fatalf("NewConfiguration: %v", err)
	}
	if got, want := cfg.RepositoryPath(), filepath.Join(home, ".keymaster"); got != want {
		t.Errorf("RepositoryPath = %q, want %q", got, want)
	}
	if !cfg.Operations().Empty() {
		t.Errorf("no operation should be requested, got %s", cfg.Operations())
	}
	if cfg.Env() != "all" {
		t.Errorf("Env = %q", cfg.Env())
	}
	if !reflect.DeepEqual(cfg.Environments(), model.Environments()) {
		t.Errorf("Environments = %v", cfg.Environments())
	}
	if !reflect.DeepEqual(cfg.Identities(), model.DefaultIdentities()) {
		t.Errorf("Identities = %v", cfg.Identities())
	}
	if cfg.Hostname() != DefaultHostname || cfg.Organization() != DefaultOrganization {
		t.Errorf("subject defaults = %q %q", cfg.Hostname(), cfg.Organization())
	}
	if cfg.BaseDirectory() != "" {
		t.Errorf("BaseDirectory = %q", cfg.BaseDirectory())
	}
}

func TestNewConfiguration_GenerationImpliesBackup(t *testing.T) {
	cases := map[string]Options{
		"certs":  {Directory: "/r", Certs: true},
		"keys":   {Directory: "/r", Keys: true},
		"pwhash": {Directory: "/r", PasswordHash: true},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := NewConfiguration(opts)
			if err != nil {
				t.Fatal(err)
			}
			if !cfg.Operations().Has(model.OpBackup) {
				t.Fatalf("%s should imply backup, got %s", name, cfg.Operations())
			}
		})
	}

	cfg, _ := NewConfiguration(Options{Directory: "/r", Init: true})
	if cfg.Operations().Has(model.OpBackup) {
		t.Fatal("init alone must not imply backup")
	}
}

func TestNewConfiguration_SingleEnvironment(t *testing.T) {
	cfg, err := NewConfiguration(Options{Directory: "/r", Env: "development"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Environments(), []model.Environment{model.Development}) {
		t.Fatalf("Environments = %v", cfg.Environments())
	}

	cfg, _ = NewConfiguration(Options{Directory: "/r", Env: "ALL"})
	if len(cfg.Environments()) != 3 {
		t.Fatalf("all should expand to three environments, got %v", cfg.Environments())
	}
}

func TestNewConfiguration_UnknownEnvironment(t *testing.T) {
	_, err := NewConfiguration(Options{Directory: "/r", Env: "staging"})
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}

func TestNewConfiguration_Users(t *testing.T) {
	cfg, err := NewConfiguration(Options{Directory: "/r", Users: "a, b"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Identities(), []model.Identity{"a", "b"}) {
		t.Fatalf("Identities = %v", cfg.Identities())
	}

	if _, err := NewConfiguration(Options{Directory: "/r", Users: "a,../b"}); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}

func TestConfiguration_GettersReturnCopies(t *testing.T) {
	cfg, _ := NewConfiguration(Options{Directory: "/r", Users: "a,b"})
	ids := cfg.Identities()
	ids[0] = "mutated"
	envs := cfg.Environments()
	envs[0] = model.Production

	if cfg.Identities()[0] != "a" {
		t.Fatal("identities were mutated through a getter")
	}
	if cfg.Environments()[0] != model.Development {
		t.Fatal("environments were mutated through a getter")
	}
}

func TestNewConfiguration_EndToEndFlags(t *testing.T) {
	cfg, err := NewConfiguration(Options{
		Directory: t.TempDir(),
		Certs:     true,
		Hostname:  "example.com",
		Company:   "blah",
		Users:     "a,b,c",
	})
	if err != nil {
		t.Fatal(err)
	}
	ops := cfg.Operations()
	if !ops.Has(model.OpBackup) || !ops.Has(model.OpCerts) || ops.Has(model.OpKeys) {
		t.Fatalf("Operations = %s", ops)
	}
	if cfg.Env() != "all" {
		t.Fatalf("Env = %q", cfg.Env())
	}
	if !reflect.DeepEqual(cfg.Identities(), []model.Identity{"a", "b", "c"}) {
		t.Fatalf("Identities = %v", cfg.Identities())
	}
	if cfg.Hostname() != "example.com" || cfg.Organization() != "blah" {
		t.Fatalf("subject = %q %q", cfg.Hostname(), cfg.Organization())
	}
}

func TestExpandHome(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("HOME is not consulted on windows")
	}
	t.Setenv("HOME", "/home/km")
	for in, want := range map[string]string{
		"~":           "/home/km",
		"~/repo":      "/home/km/repo",
		"/abs/path":   "/abs/path",
		"rel/~/stays": "rel/~/stays",
	} {
		got, err := expandHome(in)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("expandHome(%q) = %q, want %q", in, got, want)
		}
	}
}
