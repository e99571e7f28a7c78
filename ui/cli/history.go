// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/toeirei/keyrepo/internal/i18n"
	"github.com/toeirei/keyrepo/internal/journal"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.repositoryPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !a.cfg.Journal.Enabled {
				_, _ = fmt.Fprintln(out, i18n.T("history.disabled"))
				return nil
			}
			dsn := a.journalDSN(path)
			if dsn == "" {
				_, _ = fmt.Fprintln(out, i18n.T("history.empty", path))
				return nil
			}
			// Reading history must not create the default journal file.
			if a.cfg.Journal.Dsn == "" {
				ok, err := afero.Exists(a.fs, dsn)
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(out, i18n.T("history.empty", path))
					return nil
				}
			}

			j, err := journal.Open(cmd.Context(), a.cfg.Journal.Type, dsn)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			runs, err := j.Recent(cmd.Context(), path, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(out, i18n.T("history.empty", path))
				return nil
			}
			_, _ = fmt.Fprintln(out, renderTable(historyHeaders(), historyRows(runs)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func historyHeaders() []string {
	return []string{
		i18n.T("history.col_started"),
		i18n.T("history.col_ops"),
		i18n.T("history.col_state"),
		i18n.T("history.col_files"),
		i18n.T("history.col_error"),
	}
}

func historyRows(runs []journal.RunRecord) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		errText := r.ErrorKind
		if r.FailedOp != "" {
			errText = r.FailedOp + ": " + errText
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Operations,
			stateStyle(r.State).Render(r.State),
			strconv.Itoa(r.FileCount),
			errText,
		})
	}
	return rows
}
