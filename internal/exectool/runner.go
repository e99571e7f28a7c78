// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package exectool runs external command-line tools (openssl, ssh-keygen)
// behind a small interface so callers can be tested without the tools.
package exectool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// OSRunner runs commands on the host.
type OSRunner struct{}

// ErrToolNotFound is returned when the executable is not on PATH.
var ErrToolNotFound = errors.New("tool not found in PATH")

func (OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			return out.Bytes(), fmt.Errorf("%s: %w", name, err)
		}
		return out.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return out.Bytes(), nil
}

// Call records one invocation made against a Recorder.
type Call struct {
	Name string
	Args []string
}

// String renders the call like a shell command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Recorder is a Runner that records calls instead of executing them. Fn,
// when set, decides the outcome of each call.
type Recorder struct {
	Calls []Call
	Fn    func(c Call) ([]byte, error)
}

func (r *Recorder) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	c := Call{Name: name, Args: append([]string(nil), args...)}
	r.Calls = append(r.Calls, c)
	if r.Fn != nil {
		return r.Fn(c)
	}
	return nil, nil
}
