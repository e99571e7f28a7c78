// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/keyrepo/internal/i18n"
	"github.com/toeirei/keyrepo/internal/model"
	"github.com/toeirei/keyrepo/internal/repository"
)

func newSnapshotsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List the backup snapshots of the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.repositoryPath()
			if err != nil {
				return err
			}
			store := repository.New(a.fs, repository.WithLogger(a.log))
			if !store.Exists(path) {
				return model.E(model.KindNotFound, "snapshots", path, nil)
			}
			snaps, err := store.Snapshots(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(snaps) == 0 {
				_, _ = fmt.Fprintln(out, i18n.T("snapshots.empty", path))
				return nil
			}
			rows := make([][]string, 0, len(snaps))
			for _, s := range snaps {
				taken := "-"
				if !s.Time.IsZero() {
					taken = s.Time.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{s.Name, taken, strconv.Itoa(s.Files)})
			}
			headers := []string{
				i18n.T("snapshots.col_name"),
				i18n.T("snapshots.col_time"),
				i18n.T("snapshots.col_files"),
			}
			_, _ = fmt.Fprintln(out, renderTable(headers, rows))
			return nil
		},
	}
}
