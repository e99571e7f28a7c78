// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	cfg "github.com/toeirei/keyrepo/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Chdir(tmp)
	return tmp
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	c, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Directory != "~/.keymaster" || c.Env != "all" || c.Hostname != "localhost" || c.Company != "NA" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.TLS.ValidityDays != 9999 || c.SSH.Bits != 2048 || c.Secret.Size != 32 {
		t.Fatalf("unexpected nested defaults: %+v", c)
	}
	if !c.Journal.Enabled || c.Journal.Type != "sqlite" {
		t.Fatalf("unexpected journal defaults: %+v", c.Journal)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	tmp := isolate(t)
	yaml := "directory: /srv/repo\nenv: testing\ntls:\n  validity_days: 30\nssh:\n  type: ed25519\nlanguage: de\n"
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Directory != "/srv/repo" || c.Env != "testing" || c.Language != "de" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.TLS.ValidityDays != 30 || c.SSH.Type != "ed25519" {
		t.Fatalf("nested values not applied: %+v", c)
	}
	if c.TLS.Bits != 2048 {
		t.Fatalf("defaults should fill missing nested keys, got %d", c.TLS.Bits)
	}
}

func TestLoadConfig_MissingExplicitFileFails(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "missing.yaml")
	if _, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestLoadConfig_UserConfigFile(t *testing.T) {
	tmp := isolate(t)
	dir := filepath.Join(tmp, "keymaster")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "keymaster.yaml"), []byte("company: acme\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Company != "acme" {
		t.Fatalf("Company = %q", c.Company)
	}
}

func TestLoadConfig_EnvAndFlagPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("KEYMASTER_HOSTNAME", "env.example.com")
	t.Setenv("KEYMASTER_SECRET_SIZE", "48")

	cmd := &cobra.Command{}
	cmd.Flags().String("hostname", "", "")
	cmd.Flags().String("company", "", "")
	if err := cmd.Flags().Set("company", "flagco"); err != nil {
		t.Fatal(err)
	}

	c, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Hostname != "env.example.com" {
		t.Errorf("env should override defaults, got %q", c.Hostname)
	}
	if c.Secret.Size != 48 {
		t.Errorf("nested env should apply, got %d", c.Secret.Size)
	}
	if c.Company != "flagco" {
		t.Errorf("changed flag should win, got %q", c.Company)
	}
}

func TestValidate(t *testing.T) {
	isolate(t)
	base, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatal(err)
	}

	bad := base
	bad.Generator = "magic"
	if bad.Validate() == nil {
		t.Error("unknown generator should fail")
	}
	bad = base
	bad.Secret.Size = 0
	if bad.Validate() == nil {
		t.Error("zero secret size should fail")
	}
	bad = base
	bad.Secret.Alphabet = ""
	if bad.Validate() == nil {
		t.Error("empty alphabet should fail")
	}
	bad = base
	bad.Secret.Alphabet = "ab\xff"
	if bad.Validate() == nil {
		t.Error("alphabet with invalid UTF-8 should fail")
	}
	good := base
	good.Secret.Alphabet = "äöü"
	if err := good.Validate(); err != nil {
		t.Errorf("multi-byte alphabet should validate: %v", err)
	}
}

func TestWriteConfigFile_RoundTrip(t *testing.T) {
	isolate(t)

	c := cfg.Config{Directory: "/data/repo", Env: "production", Generator: cfg.GeneratorExec, Language: "en"}
	c.SSH.Type = "ed25519"
	c.TLS.ValidityDays = 365

	path, err := cfg.WriteConfigFile(&c, false)
	if err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}
	want, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if path != want {
		t.Fatalf("wrote %s, want %s", path, want)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file at %s, stat error: %v", path, err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Directory != "/data/repo" || got.Env != "production" || got.Generator != cfg.GeneratorExec {
		t.Fatalf("round trip lost values: %+v", got)
	}
	if got.SSH.Type != "ed25519" || got.TLS.ValidityDays != 365 {
		t.Fatalf("round trip lost nested values: %+v", got)
	}
}
