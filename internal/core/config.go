// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/toeirei/keyrepo/internal/model"
)

// Defaults applied when an option is left empty.
const (
	DefaultDirectory    = "~/.keymaster"
	DefaultHostname     = "localhost"
	DefaultOrganization = "NA"
)

// Options are the raw, unvalidated inputs of one invocation as they come
// from flags or configuration files.
type Options struct {
	Directory    string
	Init         bool
	Backup       bool
	Certs        bool
	Keys         bool
	PasswordHash bool
	Env          string // development, testing, production or all
	Base         string
	Users        string // comma-separated identities
	Hostname     string
	Company      string
}

// Configuration is the normalized, immutable form of Options.
type Configuration struct {
	path         string
	ops          model.OpSet
	env          string
	environments []model.Environment
	identities   []model.Identity
	base         string
	hostname     string
	organization string
}

// NewConfiguration applies defaults to opts and validates them. Requesting
// certs, keys or pwhash always adds backup.
func NewConfiguration(opts Options) (Configuration, error) {
	const op = "config"
	var cfg Configuration

	path := opts.Directory
	if path == "" {
		path = DefaultDirectory
	}
	path, err := expandHome(path)
	if err != nil {
		return cfg, model.E(model.KindInvalidConfig, op, opts.Directory, err)
	}
	cfg.path = filepath.Clean(path)

	if opts.Init {
		cfg.ops = cfg.ops.With(model.OpInit)
	}
	if opts.Backup {
		cfg.ops = cfg.ops.With(model.OpBackup)
	}
	if opts.Certs {
		cfg.ops = cfg.ops.With(model.OpCerts)
	}
	if opts.Keys {
		cfg.ops = cfg.ops.With(model.OpKeys)
	}
	if opts.PasswordHash {
		cfg.ops = cfg.ops.With(model.OpPasswordHash)
	}
	if cfg.ops.Has(model.OpCerts) || cfg.ops.Has(model.OpKeys) || cfg.ops.Has(model.OpPasswordHash) {
		cfg.ops = cfg.ops.With(model.OpBackup)
	}

	cfg.env = strings.ToLower(strings.TrimSpace(opts.Env))
	if cfg.env == "" {
		cfg.env = model.AllEnvironments
	}
	if cfg.env == model.AllEnvironments {
		cfg.environments = model.Environments()
	} else {
		e, err := model.ParseEnvironment(cfg.env)
		if err != nil {
			return Configuration{}, model.E(model.KindInvalidConfig, op, "", err)
		}
		cfg.environments = []model.Environment{e}
	}

	if strings.TrimSpace(opts.Users) == "" {
		cfg.identities = model.DefaultIdentities()
	} else {
		ids, err := model.ParseIdentities(opts.Users)
		if err != nil {
			return Configuration{}, model.E(model.KindInvalidConfig, op, "", err)
		}
		cfg.identities = ids
	}

	if opts.Base != "" {
		base, err := expandHome(opts.Base)
		if err != nil {
			return Configuration{}, model.E(model.KindInvalidConfig, op, opts.Base, err)
		}
		cfg.base = filepath.Clean(base)
	}

	cfg.hostname = orDefault(opts.Hostname, DefaultHostname)
	cfg.organization = orDefault(opts.Company, DefaultOrganization)
	return cfg, nil
}

func (c Configuration) RepositoryPath() string { return c.path }
func (c Configuration) Operations() model.OpSet { return c.ops }

// Env is the environment selector as given, "all" when none was.
func (c Configuration) Env() string { return c.env }

func (c Configuration) Environments() []model.Environment { return slices.Clone(c.environments) }
func (c Configuration) Identities() []model.Identity { return slices.Clone(c.identities) }
func (c Configuration) BaseDirectory() string { return c.base }
func (c Configuration) Hostname() string { return c.hostname }
func (c Configuration) Organization() string { return c.organization }

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[1:]), nil
}
