// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// package cert generates the self-signed TLS key/certificate pairs stored
// per environment in the repository. These certificates are for initial
// shakeout and development; they are not part of any authority chain.
package cert // import "github.com/toeirei/keyrepo/internal/crypto/cert"

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/toeirei/keyrepo/internal/exectool"
	"github.com/toeirei/keyrepo/internal/model"
)

// Defaults match the openssl invocation the repository layout was
// designed around.
const (
	DefaultBits         = 2048
	DefaultValidityDays = 9999
	DefaultCountry      = "US"
)

// Request describes one key/certificate pair.
type Request struct {
	CommonName   string
	Organization string
	Country      string
	KeyPath      string
	CertPath     string
	ValidityDays int
	Bits         int
}

func (r Request) withDefaults() Request {
	if r.Bits == 0 {
		r.Bits = DefaultBits
	}
	if r.ValidityDays == 0 {
		r.ValidityDays = DefaultValidityDays
	}
	if r.Country == "" {
		r.Country = DefaultCountry
	}
	return r
}

// Generator produces a private key file and a self-signed certificate file.
type Generator interface {
	Generate(ctx context.Context, req Request) error
}

// Native generates RSA keys and certificates with crypto/x509 and writes
// them through afero.
type Native struct {
	Fs   afero.Fs
	Rand io.Reader
	Now  func() time.Time
}

// NewNative returns a native generator writing to fs.
func NewNative(fs afero.Fs) *Native {
	return &Native{Fs: fs, Rand: rand.Reader, Now: time.Now}
}

func (g *Native) Generate(_ context.Context, req Request) error {
	req = req.withDefaults()
	key, err := rsa.GenerateKey(g.Rand, req.Bits)
	if err != nil {
		return model.E(model.KindExternalTool, "certs", req.KeyPath, fmt.Errorf("generate rsa key: %w", err))
	}
	certDER, err := g.selfSign(key, req)
	if err != nil {
		return model.E(model.KindExternalTool, "certs", req.CertPath, err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return model.E(model.KindExternalTool, "certs", req.KeyPath, fmt.Errorf("marshal private key: %w", err))
	}

	if err := writePEM(g.Fs, req.KeyPath, "PRIVATE KEY", keyDER); err != nil {
		return model.E(model.KindStorage, "certs", req.KeyPath, err)
	}
	if err := writePEM(g.Fs, req.CertPath, "CERTIFICATE", certDER); err != nil {
		return model.E(model.KindStorage, "certs", req.CertPath, err)
	}
	return nil
}

func (g *Native) selfSign(key *rsa.PrivateKey, req Request) ([]byte, error) {
	serial, err := rand.Int(g.Rand, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}
	notBefore := g.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   req.CommonName,
			Organization: []string{req.Organization},
			Country:      []string{req.Country},
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(0, 0, req.ValidityDays),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}
	if ip := net.ParseIP(req.CommonName); ip != nil {
		tmpl.IPAddresses = []net.IP{ip}
	} else if req.CommonName != "" {
		tmpl.DNSNames = []string{req.CommonName}
	}
	der, err := x509.CreateCertificate(g.Rand, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	return der, nil
}

func writePEM(fs afero.Fs, path, blockType string, der []byte) error {
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	return afero.WriteFile(fs, path, data, os.FileMode(0o600))
}

// OpenSSL shells out to `openssl req`, the tool the repository layout was
// originally produced with.
type OpenSSL struct {
	Runner exectool.Runner
}

func (g OpenSSL) Generate(ctx context.Context, req Request) error {
	req = req.withDefaults()
	args := []string{
		"req", "-nodes",
		"-newkey", "rsa:" + strconv.Itoa(req.Bits),
		"-x509",
		"-days", strconv.Itoa(req.ValidityDays),
		"-keyout", req.KeyPath,
		"-out", req.CertPath,
		"-subj", Subject(req.CommonName, req.Organization, req.Country),
	}
	if _, err := g.Runner.Run(ctx, "openssl", args...); err != nil {
		return model.E(model.KindExternalTool, "certs", req.CertPath, err)
	}
	return nil
}

// Subject renders an openssl -subj string, escaping separators in values.
func Subject(cn, org, country string) string {
	esc := strings.NewReplacer(`\`, `\\`, "/", `\/`)
	return fmt.Sprintf("/CN=%s/O=%s/C=%s", esc.Replace(cn), esc.Replace(org), esc.Replace(country))
}
