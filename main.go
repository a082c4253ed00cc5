package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sinclairtarget/idman/internal/clierr"
	"github.com/sinclairtarget/idman/internal/config"
	"github.com/sinclairtarget/idman/internal/subcommands"
)

var Commit = "unknown"
var Version = "unknown"

// Main builds the command tree and maps any error to an exit code.
//
// If no subcommand was specified, we resolve identities.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		printError(os.Stderr, err)
		os.Exit(clierr.ExitCodeOf(err))
	}
}

func newRootCmd() *cobra.Command {
	var global globalFlags
	var filters logFlags
	var (
		includeHashes bool
		usePretty     bool
		useCompact    bool
		xlsxPath      string
		jobs          int
		noCache       bool
	)

	cmd := &cobra.Command{
		Use:   "idman [flags] <repo> [algorithm] [params...]",
		Short: "Merge git commit authors into identities",
		Long: strings.TrimSpace(`
idman reads the commit history of a git repository, merges author name/email
pairs that belong to the same person using the chosen matching algorithm, and
prints one JSON document describing the resulting identities.

The repository may be a local path or a URL. The algorithm defaults to
"default"; run "idman algorithms" to list the others.
		`),
		Version:       fmt.Sprintf("%s %s", Version, Commit),
		Args:          usageArgs(cobra.MinimumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isOnlyOne(usePretty, useCompact) {
				return clierr.New(
					clierr.CodeUsage,
					"--pretty and --compact are mutually exclusive",
				)
			}

			location := args[0]
			algorithm := ""
			var params []string
			if len(args) > 1 {
				algorithm = args[1]
				params = args[2:]
			}

			cfg, err := loadSettings(cmd, global, location, func(cfg *config.Config) {
				filters.apply(cmd, cfg)
				if cmd.Flags().Changed("jobs") {
					cfg.Jobs = jobs
				}
				if noCache {
					cfg.Cache.Enabled = false
				}
			})
			if err != nil {
				return err
			}

			if algorithm == "" {
				algorithm = cfg.Algorithm
			}

			indent := defaultIndent(cmd.OutOrStdout())
			if usePretty {
				indent = true
			} else if useCompact {
				indent = false
			}

			err = subcommands.Resolve(
				cmd.Context(),
				cmd.OutOrStdout(),
				location,
				algorithm,
				params,
				resolveOptions(cfg, filters, includeHashes),
				subcommands.OutputOptions{Indent: indent, XLSXPath: xlsxPath},
			)
			return classify(err)
		},
	}

	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "", err)
	})

	global.register(cmd)
	filters.register(cmd)

	flags := cmd.Flags()
	flags.BoolVar(
		&includeHashes,
		"hashes",
		false,
		"Include the hashes of each identity's commits",
	)
	flags.BoolVar(&usePretty, "pretty", false, "Indent the JSON output")
	flags.BoolVar(
		&useCompact,
		"compact",
		false,
		"Print the JSON output on one line (default when stdout is not a terminal)",
	)
	flags.StringVar(&xlsxPath, "xlsx", "", "Also write the report to this Excel workbook")
	flags.IntVarP(&jobs, "jobs", "j", 0, "Number of git processes to run (0 means one per CPU)")
	flags.BoolVar(&noCache, "no-cache", false, "Do not read or write the commit cache")

	cmd.AddCommand(
		dumpCmd(&global),
		parseCmd(&global),
		algorithmsCmd(),
		cacheCmd(&global),
		versionCmd(),
	)

	return cmd
}

// -v- Subcommand definitions --------------------------------------------------

func dumpCmd(global *globalFlags) *cobra.Command {
	var filters logFlags

	cmd := &cobra.Command{
		Use:   "dump [flags] <repo>",
		Short: "Print the raw git log fields idman reads",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd, *global, args[0], func(cfg *config.Config) {
				filters.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}

			err = subcommands.Dump(
				cmd.Context(),
				cmd.OutOrStdout(),
				args[0],
				filters.logOpts(cfg),
			)
			return classify(err)
		},
	}

	filters.register(cmd)
	return cmd
}

func parseCmd(global *globalFlags) *cobra.Command {
	var filters logFlags

	cmd := &cobra.Command{
		Use:   "parse [flags] <repo>",
		Short: "Print the commits idman parses from git log",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd, *global, args[0], func(cfg *config.Config) {
				filters.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}

			err = subcommands.Parse(
				cmd.Context(),
				cmd.OutOrStdout(),
				args[0],
				filters.logOpts(cfg),
			)
			return classify(err)
		},
	}

	filters.register(cmd)
	return cmd
}

func algorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the matching algorithms",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return subcommands.Algorithms(cmd.OutOrStdout())
		},
	}
}

func cacheCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the commit cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the commit caches of every repository",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd, *global, "", nil)
			if err != nil {
				return err
			}

			return subcommands.ClearCache(cmd.OutOrStdout(), cfg.Cache.Dir)
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", Version, Commit)
		},
	}
}

// -^---------------------------------------------------------------------------

// Used to check mutual exclusion.
func isOnlyOne(flags ...bool) bool {
	var foundOne bool
	for _, f := range flags {
		if f {
			if foundOne {
				return false
			}

			foundOne = true
		}
	}

	return true
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return clierr.Wrap(clierr.CodeUsage, "", validate(cmd, args))
	}
}
