// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toeirei/keyrepo/internal/config"
	"github.com/toeirei/keyrepo/internal/i18n"
	"github.com/toeirei/keyrepo/internal/model"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the keymaster.yaml configuration file",
	}

	var system bool
	write := &cobra.Command{
		Use:   "write",
		Short: "Write the effective configuration to keymaster.yaml",
		Long: `Writes the configuration currently in effect (defaults, config file,
environment and flags merged) to the user configuration directory, or with
--system to the system-wide location.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteConfigFile(&a.cfg, system)
			if err != nil {
				return model.E(model.KindStorage, "config", path, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("config.written", path))
			return nil
		},
	}
	write.Flags().BoolVar(&system, "system", false, "Write the system-wide configuration")
	cmd.AddCommand(write)
	return cmd
}
