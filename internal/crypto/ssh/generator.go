// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// package ssh provides cryptographic helpers for SSH key operations.
// This file contains logic for generating new SSH key pairs on disk.
package ssh // import "github.com/toeirei/keyrepo/internal/crypto/ssh"

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/toeirei/keyrepo/internal/exectool"
	"github.com/toeirei/keyrepo/internal/model"
	"golang.org/x/crypto/ssh"
)

// KeyType selects the key algorithm.
type KeyType string

const (
	RSA     KeyType = "rsa"
	Ed25519 KeyType = "ed25519"
)

// DefaultBits is the RSA modulus size used when a request leaves Bits unset.
const DefaultBits = 2048

// ParseKeyType validates a configured key type. Empty means RSA.
func ParseKeyType(s string) (KeyType, error) {
	switch KeyType(strings.ToLower(strings.TrimSpace(s))) {
	case "", RSA:
		return RSA, nil
	case Ed25519:
		return Ed25519, nil
	}
	return "", fmt.Errorf("unsupported key type %q (want rsa or ed25519)", s)
}

// Request describes one key pair. The public key is written next to the
// private key with a ".pub" suffix. An empty Passphrase means none.
type Request struct {
	PrivateKeyPath string
	Bits           int
	Passphrase     string
	Comment        string
}

// PublicKeyPath is the path of the public half of the pair.
func (r Request) PublicKeyPath() string { return r.PrivateKeyPath + ".pub" }

// Generator produces an SSH key pair on disk.
type Generator interface {
	Generate(ctx context.Context, req Request) error
}

// Native generates keys in-process and writes them through afero in the
// OpenSSH private key format and the authorized_keys public key format.
type Native struct {
	Fs   afero.Fs
	Type KeyType
	Rand io.Reader
}

// NewNative returns a native generator for keys of type kt.
func NewNative(fs afero.Fs, kt KeyType) *Native {
	return &Native{Fs: fs, Type: kt, Rand: rand.Reader}
}

func (g *Native) Generate(_ context.Context, req Request) error {
	var (
		priv crypto.PrivateKey
		pub  crypto.PublicKey
	)
	switch g.Type {
	case Ed25519:
		pk, sk, err := ed25519.GenerateKey(g.Rand)
		if err != nil {
			return model.E(model.KindExternalTool, "keys", req.PrivateKeyPath, fmt.Errorf("failed to generate ed25519 key pair: %w", err))
		}
		priv, pub = sk, pk
	default:
		bits := req.Bits
		if bits == 0 {
			bits = DefaultBits
		}
		sk, err := rsa.GenerateKey(g.Rand, bits)
		if err != nil {
			return model.E(model.KindExternalTool, "keys", req.PrivateKeyPath, fmt.Errorf("failed to generate rsa key pair: %w", err))
		}
		priv, pub = sk, &sk.PublicKey
	}

	publicKey, privateKey, err := MarshalKeyPair(priv, pub, req.Comment, req.Passphrase)
	if err != nil {
		return model.E(model.KindExternalTool, "keys", req.PrivateKeyPath, err)
	}
	if err := afero.WriteFile(g.Fs, req.PrivateKeyPath, privateKey, os.FileMode(0o600)); err != nil {
		return model.E(model.KindStorage, "keys", req.PrivateKeyPath, err)
	}
	if err := afero.WriteFile(g.Fs, req.PublicKeyPath(), publicKey, os.FileMode(0o644)); err != nil {
		return model.E(model.KindStorage, "keys", req.PublicKeyPath(), err)
	}
	return nil
}

// MarshalKeyPair returns the public key as an authorized_keys line and the
// private key as an OpenSSH PEM block. If a non-empty passphrase is
// provided, the private key is encrypted with it.
func MarshalKeyPair(priv crypto.PrivateKey, pub crypto.PublicKey, comment, passphrase string) (publicKey, privateKey []byte, err error) {
	sshPubKey, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPubKey)))
	if comment != "" {
		line += " " + comment
	}

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, comment)
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, comment, []byte(passphrase))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return []byte(line + "\n"), pem.EncodeToMemory(block), nil
}

// SSHKeygen shells out to ssh-keygen.
type SSHKeygen struct {
	Runner exectool.Runner
	Type   KeyType
}

func (g SSHKeygen) Generate(ctx context.Context, req Request) error {
	args := []string{"-q", "-t", string(RSA)}
	if g.Type == Ed25519 {
		args[2] = string(Ed25519)
	} else {
		bits := req.Bits
		if bits == 0 {
			bits = DefaultBits
		}
		args = append(args, "-b", strconv.Itoa(bits))
	}
	args = append(args, "-N", req.Passphrase, "-C", req.Comment, "-f", req.PrivateKeyPath)
	if _, err := g.Runner.Run(ctx, "ssh-keygen", args...); err != nil {
		return model.E(model.KindExternalTool, "keys", req.PrivateKeyPath, err)
	}
	return nil
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys line.
func Fingerprint(authorizedKey []byte) (string, error) {
	pk, _, _, _, err := ssh.ParseAuthorizedKey(authorizedKey)
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", err)
	}
	return ssh.FingerprintSHA256(pk), nil
}
