// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core sequences repository operations. It decides which
// operations run and in what order, enforces the repository existence
// rules and takes the automatic backup before anything is regenerated.
// All side effects happen behind the interfaces below.
package core

import (
	"context"

	"github.com/toeirei/keyrepo/internal/model"
)

// RepositoryStore manages the repository directory itself.
type RepositoryStore interface {
	Exists(path string) bool
	Initialize(path, baseDir string) error
	Backup(path string) (model.BackupRecord, error)
}

// CertificateProvisioner writes one key/certificate pair per environment.
type CertificateProvisioner interface {
	ProvisionAll(ctx context.Context, path string, envs []model.Environment, hostname, organization string) error
}

// KeyProvisioner writes one SSH key pair per identity.
type KeyProvisioner interface {
	ProvisionAll(ctx context.Context, path string, identities []model.Identity) error
}

// SecretGenerator writes the pw.hash secret file.
type SecretGenerator interface {
	Generate(path string) error
}

// Deps are the collaborators of an Orchestrator. Only the ones needed by
// the requested operations must be set.
type Deps struct {
	Store  RepositoryStore
	Certs  CertificateProvisioner
	Keys   KeyProvisioner
	Secret SecretGenerator
}
