// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toeirei/keyrepo/internal/archive"
	"github.com/toeirei/keyrepo/internal/i18n"
	"github.com/toeirei/keyrepo/internal/model"
	"github.com/toeirei/keyrepo/internal/repository"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [output-file]",
		Short: "Write the repository's root-level files to a tar.zst archive",
		Long: `Packs every root-level file of the repository (keys, certificates and
pw.hash) into a single Zstandard-compressed tar archive. Snapshots and the
base/ directory are not included.

If an output file is specified, '.tar.zst' will be appended to the name if
it's not already present. If no output file is specified, a default file
name 'keymaster-repo-YYYY-MM-DD.tar.zst' is used. The archive is readable
by its owner only.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.repositoryPath()
			if err != nil {
				return err
			}
			store := repository.New(a.fs, repository.WithLogger(a.log))
			if !store.Exists(path) {
				return model.E(model.KindNotFound, "export", path, nil)
			}
			names, err := store.RootFiles(path)
			if err != nil {
				return err
			}

			output := fmt.Sprintf("keymaster-repo-%s%s", a.now().Format("2006-01-02"), archive.Extension)
			if len(args) == 1 {
				output = args[0]
				if !strings.HasSuffix(output, archive.Extension) {
					output += archive.Extension
				}
			}

			f, err := a.fs.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, repository.OwnerOnly)
			if err != nil {
				return model.E(model.KindStorage, "export", output, err)
			}
			n, err := archive.Export(a.fs, path, names, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return model.E(model.KindStorage, "export", output, err)
			}
			a.log.Debugf("exported %v", names)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("export.done", n, output))
			return nil
		},
	}
}
