// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Keymaster using Cobra.
// It loads configuration, wires the repository services and hands the
// normalized options to the `core` orchestrator. CLI code should remain thin
// and delegate repository logic to `core` and the packages it drives.
package cli
