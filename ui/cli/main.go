// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/toeirei/keyrepo/buildvars"
	"github.com/toeirei/keyrepo/internal/config"
	"github.com/toeirei/keyrepo/internal/core"
	"github.com/toeirei/keyrepo/internal/i18n"
	"github.com/toeirei/keyrepo/internal/logging"
	"github.com/toeirei/keyrepo/internal/model"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

// app carries the state shared by the root command and its subcommands.
type app struct {
	fs      afero.Fs
	now     func() time.Time
	cfgFile string
	cfg     config.Config
	log     *log.Logger
}

func newApp() *app {
	return &app{fs: afero.NewOsFs(), now: time.Now, log: logging.Discard()}
}

// setup loads configuration, language and logger before any command runs.
func (a *app) setup(cmd *cobra.Command) error {
	var cfgPath *string
	if cmd.Flags().Changed("config") && a.cfgFile != "" {
		if _, err := os.Stat(a.cfgFile); err != nil {
			return model.E(model.KindInvalidConfig, "config", a.cfgFile, err)
		}
		cfgPath = &a.cfgFile
	}

	c, err := config.LoadConfig[config.Config](cmd, config.Defaults(), cfgPath)
	if err != nil {
		return model.E(model.KindInvalidConfig, "config", a.cfgFile, err)
	}
	if err := c.Validate(); err != nil {
		return model.E(model.KindInvalidConfig, "config", "", err)
	}
	a.cfg = c

	i18n.Init(c.Language)
	a.log = logging.New(cmd.ErrOrStderr(), logging.Options{Verbose: c.Verbose})
	return nil
}

// repositoryPath resolves the configured directory the same way a run does.
func (a *app) repositoryPath() (string, error) {
	c, err := core.NewConfiguration(core.Options{Directory: a.cfg.Directory})
	if err != nil {
		return "", err
	}
	return c.RepositoryPath(), nil
}

// Execute runs the CLI entrypoint. The main package should call this
// function and handle process exit.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		printError(cmd.ErrOrStderr(), err)
	}
	return err
}

// printError writes the localized reason for err.
func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, i18n.T("cli.error", describe(err)))
}

// describe prefixes the error with a localized summary of its kind.
func describe(err error) string {
	var me *model.Error
	if !errors.As(err, &me) {
		return err.Error()
	}
	return i18n.T("error."+model.KindOf(err).String()) + " (" + err.Error() + ")"
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keymaster",
		Short: "Keymaster manages a local credential repository.",
		Long: `Keymaster creates and maintains a directory holding per-environment
TLS key/certificate pairs, per-identity SSH key pairs and a random
secret (pw.hash). Every regeneration is preceded by a timestamped backup
of the repository's root-level files.

Examples:
  # Create a new repository seeded from ./seed
  keymaster --init --base ./seed

  # Regenerate the development certificate
  keymaster --certs --env development --hostname dev.example.com

  # Regenerate SSH keys for two identities and a new secret
  keymaster --keys --pwhash --users deploy,ci`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRoot(cmd)
		},
	}

	v, c, d := resolveBuildVersion(nil)
	compositeVersion := v
	if c != "" && c != "dev" {
		compositeVersion = compositeVersion + " (" + c + ")"
	}
	if d != "" {
		compositeVersion = compositeVersion + " built: " + d
	}
	cmd.Version = compositeVersion

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.String("language", "en", `Output language ("en", "de")`)
	pf.StringP("directory", "d", core.DefaultDirectory, "Repository directory")

	f := cmd.Flags()
	f.Bool("init", false, "Create a new repository (runs alone)")
	f.Bool("backup", false, "Back up the repository's root-level files")
	f.Bool("certs", false, "Regenerate TLS key/certificate pairs (implies --backup)")
	f.Bool("keys", false, "Regenerate SSH key pairs (implies --backup)")
	f.Bool("pwhash", false, "Regenerate the pw.hash secret (implies --backup)")
	f.StringP("env", "e", "all", "Environment: development, testing, production or all")
	f.StringP("base", "b", "", "Directory whose contents seed a new repository")
	f.StringP("users", "u", "", "Comma-separated identities (default centos,buildmaster)")
	f.String("hostname", core.DefaultHostname, "Certificate common name")
	f.String("company", core.DefaultOrganization, "Certificate organization")
	f.String("generator", config.GeneratorNative, `Key and certificate backend ("native", "exec")`)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "version: %s\n", v)
			_, _ = fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				_, _ = fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}

	cmd.AddCommand(
		versionCmd,
		newHistoryCmd(a),
		newSnapshotsCmd(a),
		newExportCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime. This helper is separated to make unit testing straightforward.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	var ok bool
	if info == nil {
		if infoLocal, found := debug.ReadBuildInfo(); found {
			info = infoLocal
			ok = true
		}
	} else {
		ok = true
	}

	if ok && info != nil {
		if resolvedVersion == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// If Main doesn't contain the version (some build paths), try to
		// find our module in the dependencies and use that version.
		if (resolvedVersion == "dev" || resolvedVersion == "(devel)") && info.Deps != nil {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/toeirei/keyrepo" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// As a last resort, if no version was discovered, but a gitCommit was
	// provided via ldflags, show that to aid support.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}
