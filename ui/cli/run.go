// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/toeirei/keyrepo/internal/config"
	"github.com/toeirei/keyrepo/internal/core"
	"github.com/toeirei/keyrepo/internal/crypto/cert"
	"github.com/toeirei/keyrepo/internal/crypto/ssh"
	"github.com/toeirei/keyrepo/internal/exectool"
	"github.com/toeirei/keyrepo/internal/i18n"
	"github.com/toeirei/keyrepo/internal/journal"
	"github.com/toeirei/keyrepo/internal/model"
	"github.com/toeirei/keyrepo/internal/provision"
	"github.com/toeirei/keyrepo/internal/pwhash"
	"github.com/toeirei/keyrepo/internal/repository"
)

// options turns flags and configuration into orchestrator options. The
// operation switches are only ever read from flags.
func (a *app) options(cmd *cobra.Command) core.Options {
	flag := func(name string) bool {
		v, _ := cmd.Flags().GetBool(name)
		return v
	}
	return core.Options{
		Directory:    a.cfg.Directory,
		Init:         flag("init"),
		Backup:       flag("backup"),
		Certs:        flag("certs"),
		Keys:         flag("keys"),
		PasswordHash: flag("pwhash"),
		Env:          a.cfg.Env,
		Base:         a.cfg.Base,
		Users:        a.cfg.Users,
		Hostname:     a.cfg.Hostname,
		Company:      a.cfg.Company,
	}
}

func (a *app) runRoot(cmd *cobra.Command) error {
	conf, err := core.NewConfiguration(a.options(cmd))
	if err != nil {
		return err
	}
	store := repository.New(a.fs, repository.WithLogger(a.log), repository.WithClock(a.now))
	deps, err := a.deps(store)
	if err != nil {
		return err
	}

	orch := core.New(conf, deps, core.WithLogger(a.log), core.WithClock(a.now))
	runErr := orch.Run(cmd.Context())
	rep := orch.Report()
	if journaled(rep) && store.Exists(rep.Path) {
		a.record(cmd.Context(), rep)
	}
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if rep.Requested.Empty() {
		_, _ = fmt.Fprintln(out, i18n.T("run.no_ops"))
		return nil
	}
	if rep.Requested.Has(model.OpInit) {
		_, _ = fmt.Fprintln(out, i18n.T("run.initialized", rep.Path))
		return nil
	}
	if !rep.Backup.Empty() {
		_, _ = fmt.Fprintln(out, i18n.T("run.snapshot", rep.Backup.Dir, rep.Backup.Len()))
	}
	_, _ = fmt.Fprintln(out, okStyle.Render(i18n.T("run.done", rep.Completed)))
	return nil
}

// journaled reports whether a run belongs in the journal. Runs that
// requested nothing are skipped, and so is a failed init, which must leave
// whatever is at the path untouched.
func journaled(rep core.Report) bool {
	if rep.Requested.Empty() {
		return false
	}
	return !(rep.Requested.Has(model.OpInit) && rep.State == core.Failed)
}

// deps wires the collaborators for the configured generator backend.
func (a *app) deps(store *repository.Store) (core.Deps, error) {
	kt, err := ssh.ParseKeyType(a.cfg.SSH.Type)
	if err != nil {
		return core.Deps{}, model.E(model.KindInvalidConfig, "config", "", err)
	}

	var (
		certGen cert.Generator
		keyGen  ssh.Generator
	)
	switch a.cfg.Generator {
	case config.GeneratorExec:
		runner := exectool.OSRunner{}
		certGen = cert.OpenSSL{Runner: runner}
		keyGen = ssh.SSHKeygen{Runner: runner, Type: kt}
	default:
		certGen = cert.NewNative(a.fs)
		keyGen = ssh.NewNative(a.fs, kt)
	}

	restrictor := repository.NewRestrictor(a.fs)
	return core.Deps{
		Store: store,
		Certs: &provision.Certificates{
			Generator:    certGen,
			Restrictor:   restrictor,
			Country:      a.cfg.TLS.Country,
			ValidityDays: a.cfg.TLS.ValidityDays,
			Bits:         a.cfg.TLS.Bits,
			Log:          a.log,
		},
		Keys: &provision.Keys{
			Fs:         a.fs,
			Generator:  keyGen,
			Restrictor: restrictor,
			Bits:       a.cfg.SSH.Bits,
			Log:        a.log,
		},
		Secret: &pwhash.Generator{
			Fs:         a.fs,
			Size:       a.cfg.Secret.Size,
			Alphabet:   a.cfg.Secret.Alphabet,
			Rand:       rand.Reader,
			Restrictor: restrictor,
		},
	}, nil
}

// journalDSN returns the journal location for the repository at path, or
// "" when the journal is disabled or cannot be located. The default SQLite
// journal lives in the repository's backup directory.
func (a *app) journalDSN(path string) string {
	j := a.cfg.Journal
	if !j.Enabled {
		return ""
	}
	if j.Dsn != "" {
		return j.Dsn
	}
	if j.Type != "sqlite" {
		a.log.Warnf("journal.type %s needs journal.dsn; journal disabled", j.Type)
		return ""
	}
	dir := filepath.Join(path, model.BackupDir)
	if ok, _ := afero.DirExists(a.fs, dir); !ok {
		a.log.Debugf("no %s directory in %s; journal skipped", model.BackupDir, path)
		return ""
	}
	return filepath.Join(dir, journal.FileName)
}

// record appends the run to the journal. Journal problems never fail a run.
func (a *app) record(ctx context.Context, rep core.Report) {
	dsn := a.journalDSN(rep.Path)
	if dsn == "" {
		return
	}
	j, err := journal.Open(ctx, a.cfg.Journal.Type, dsn)
	if err != nil {
		a.log.Warnf("could not open run journal: %v", err)
		return
	}
	defer func() { _ = j.Close() }()

	rec := journal.NewRecord(rep)
	if err := j.Record(ctx, &rec); err != nil {
		a.log.Warnf("could not record run: %v", err)
		return
	}
	a.log.Debugf("recorded run %d in journal", rec.ID)
}
