// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures shared by the repository,
// provisioning and orchestration layers.
package model // import "github.com/toeirei/keyrepo/internal/model"

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Environment is a deployment environment that owns one TLS key/cert pair.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// AllEnvironments is the selector that expands to every known environment.
const AllEnvironments = "all"

// Environments returns the canonical environments in their stable order.
func Environments() []Environment {
	return []Environment{Development, Testing, Production}
}

// ParseEnvironment validates a single environment name.
func ParseEnvironment(s string) (Environment, error) {
	env := Environment(strings.TrimSpace(s))
	if !slices.Contains(Environments(), env) {
		return "", fmt.Errorf("unknown environment %q (want development, testing, production or all)", s)
	}
	return env, nil
}

// KeyFile is the private key file name for the environment, e.g. "testing.key".
func (e Environment) KeyFile() string { return string(e) + ".key" }

// CertFile is the certificate file name for the environment, e.g. "testing.pem".
func (e Environment) CertFile() string { return string(e) + ".pem" }

// Identity is a user or service account name that owns one SSH key pair.
type Identity string

// DefaultIdentities returns the built-in identity list: the default AWS
// CentOS user and the CI/CD build account.
func DefaultIdentities() []Identity {
	return []Identity{"centos", "buildmaster"}
}

// ParseIdentities splits a comma-separated identity list, keeping input
// order. Surrounding whitespace is trimmed; names that would escape the
// repository root are rejected.
func ParseIdentities(s string) ([]Identity, error) {
	parts := strings.Split(s, ",")
	ids := make([]Identity, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if err := Identity(name).Validate(); err != nil {
			return nil, err
		}
		ids = append(ids, Identity(name))
	}
	return ids, nil
}

// Validate checks that the identity can be used as a file name suffix.
func (i Identity) Validate() error {
	name := string(i)
	switch {
	case name == "":
		return fmt.Errorf("empty identity name")
	case name == "." || name == "..":
		return fmt.Errorf("invalid identity name %q", name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("identity name %q must not contain path separators", name)
	}
	return nil
}

// PrivateKeyFile is the SSH private key file name, e.g. "id_rsa.centos".
func (i Identity) PrivateKeyFile() string { return "id_rsa." + string(i) }

// PublicKeyFile is the SSH public key file name, e.g. "id_rsa.centos.pub".
func (i Identity) PublicKeyFile() string { return i.PrivateKeyFile() + ".pub" }

// Repository layout names.
const (
	BaseDir    = "base"
	BackupDir  = "backup"
	SecretFile = "pw.hash"
)

// BackupRecord describes the outcome of a single backup run.
type BackupRecord struct {
	// Dir is the snapshot directory, empty when nothing was backed up.
	Dir   string
	files []string
}

// NewBackupRecord builds a record for dir holding the given destination paths.
func NewBackupRecord(dir string, files []string) BackupRecord {
	return BackupRecord{Dir: dir, files: slices.Clone(files)}
}

// Files returns the destination paths in copy order.
func (r BackupRecord) Files() []string { return slices.Clone(r.files) }

// Len is the number of files in the snapshot.
func (r BackupRecord) Len() int { return len(r.files) }

// Empty reports whether the backup copied nothing.
func (r BackupRecord) Empty() bool { return len(r.files) == 0 }
