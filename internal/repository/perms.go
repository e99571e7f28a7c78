// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package repository

import (
	"os"
	"runtime"

	"github.com/spf13/afero"
	"github.com/toeirei/keyrepo/internal/model"
)

// OwnerOnly is the mode applied to every generated key, cert and secret.
const OwnerOnly os.FileMode = 0o600

// Restrictor limits a file to owner-only access.
type Restrictor interface {
	Restrict(path string) error
}

// ModeRestrictor chmods files through afero. It is a no-op on platforms
// without POSIX permission bits.
type ModeRestrictor struct {
	Fs   afero.Fs
	GOOS string
}

// NewRestrictor returns a restrictor for the running platform.
func NewRestrictor(fs afero.Fs) ModeRestrictor {
	return ModeRestrictor{Fs: fs, GOOS: runtime.GOOS}
}

func (r ModeRestrictor) Restrict(path string) error {
	if r.GOOS == "windows" {
		return nil
	}
	if err := r.Fs.Chmod(path, OwnerOnly); err != nil {
		return model.E(model.KindStorage, "chmod", path, err)
	}
	return nil
}
