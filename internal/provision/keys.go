// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package provision

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/toeirei/keyrepo/internal/crypto/ssh"
	"github.com/toeirei/keyrepo/internal/logging"
	"github.com/toeirei/keyrepo/internal/model"
	"github.com/toeirei/keyrepo/internal/repository"
	"go.uber.org/multierr"
)

// Keys provisions one SSH key pair per identity. Existing pairs are
// removed first; regeneration always replaces.
type Keys struct {
	Fs         afero.Fs
	Generator  ssh.Generator
	Restrictor repository.Restrictor
	Bits       int
	Log        logging.Logger
}

// ProvisionAll writes <path>/id_rsa.<id> and its .pub for every identity,
// in order. An identity whose old pair cannot be removed is skipped.
func (k *Keys) ProvisionAll(ctx context.Context, path string, identities []model.Identity) error {
	log := k.Log
	if log == nil {
		log = logging.Discard()
	}
	var errs error
	for _, id := range identities {
		priv := filepath.Join(path, id.PrivateKeyFile())
		if err := k.provision(ctx, id, priv); err != nil {
			log.Errorf("key pair for %s failed: %v", id, err)
			errs = multierr.Append(errs, err)
			continue
		}
		if fp := k.fingerprint(priv + ".pub"); fp != "" {
			log.Infof("generated key pair for %s (%s)", id, fp)
		} else {
			log.Infof("generated key pair for %s", id)
		}
	}
	return errs
}

func (k *Keys) provision(ctx context.Context, id model.Identity, priv string) error {
	pub := filepath.Join(filepath.Dir(priv), id.PublicKeyFile())
	for _, p := range []string{priv, pub} {
		if err := k.Fs.Remove(p); err != nil && !os.IsNotExist(err) {
			return model.E(model.KindStorage, "keys", p, err)
		}
	}
	req := ssh.Request{PrivateKeyPath: priv, Bits: k.Bits, Comment: string(id)}
	if err := k.Generator.Generate(ctx, req); err != nil {
		return model.Classify(model.KindExternalTool, "keys", priv, err)
	}
	return restrictAll(k.Restrictor, priv, pub)
}

func (k *Keys) fingerprint(pub string) string {
	b, err := afero.ReadFile(k.Fs, pub)
	if err != nil {
		return ""
	}
	fp, err := ssh.Fingerprint(b)
	if err != nil {
		return ""
	}
	return fp
}
