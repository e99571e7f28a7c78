// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package provision fills a repository with per-environment certificates
// and per-identity SSH key pairs. Every item is attempted; failures are
// collected and returned together.
package provision // import "github.com/toeirei/keyrepo/internal/provision"

import (
	"context"
	"path/filepath"

	"github.com/toeirei/keyrepo/internal/crypto/cert"
	"github.com/toeirei/keyrepo/internal/logging"
	"github.com/toeirei/keyrepo/internal/model"
	"github.com/toeirei/keyrepo/internal/repository"
	"go.uber.org/multierr"
)

// Certificates provisions one key/certificate pair per environment.
type Certificates struct {
	Generator    cert.Generator
	Restrictor   repository.Restrictor
	Country      string
	ValidityDays int
	Bits         int
	Log          logging.Logger
}

// ProvisionAll writes <path>/<env>.key and <path>/<env>.pem for every
// environment in envs, in order.
func (c *Certificates) ProvisionAll(ctx context.Context, path string, envs []model.Environment, hostname, organization string) error {
	log := c.Log
	if log == nil {
		log = logging.Discard()
	}
	var errs error
	for _, env := range envs {
		req := cert.Request{
			CommonName:   hostname,
			Organization: organization,
			Country:      c.Country,
			KeyPath:      filepath.Join(path, env.KeyFile()),
			CertPath:     filepath.Join(path, env.CertFile()),
			ValidityDays: c.ValidityDays,
			Bits:         c.Bits,
		}
		if err := c.provision(ctx, req); err != nil {
			log.Errorf("certificate for %s failed: %v", env, err)
			errs = multierr.Append(errs, err)
			continue
		}
		log.Infof("generated certificate for %s", env)
	}
	return errs
}

func (c *Certificates) provision(ctx context.Context, req cert.Request) error {
	if err := c.Generator.Generate(ctx, req); err != nil {
		return model.Classify(model.KindExternalTool, "certs", req.CertPath, err)
	}
	return restrictAll(c.Restrictor, req.KeyPath, req.CertPath)
}

func restrictAll(r repository.Restrictor, paths ...string) error {
	if r == nil {
		return nil
	}
	for _, p := range paths {
		if err := r.Restrict(p); err != nil {
			return err
		}
	}
	return nil
}
