package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/peteski22/prnbridge/internal/config"
	"github.com/peteski22/prnbridge/internal/runners"
	"github.com/spf13/cobra"
)

const (
	appName  = "prnbridge"
	appShort = "prnbridge synchronises PRNs and producers between NPWD, RREPW and the backend"

	runCmdUse   = "run SYNC_KEY"
	runCmdShort = "run one sync cycle for a sync key"
	runCmdLong  = `Run one sync cycle for a sync key using the local config file.

	Records changed since the stored watermark are fetched from the source
	system and pushed to the target system. The watermark only advances
	once the whole window has been pushed.

	Use --dry-run to log what would be sent without sending it or storing
	a watermark, and --since to replay from a given time.`

	runCmdExample = `# Preview the NPWD status updates since the start of June
	prnbridge run UpdatePrns --dry-run --since 2024-06-01T00:00:00Z

	# Push RREPW status updates
	prnbridge run UpdateRrepwPrns`

	listCmdShort = "list the sync keys"
	initCmdShort = "create a sample config file"

	dryRunFlagName = "dry-run"
	sinceFlagName  = "since"
)

// runFlags holds the flags of the run command.
type runFlags struct {
	dryRun bool
	since  string
}

// addFlags registers the run flags on cmd.
func (f *runFlags) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.dryRun, dryRunFlagName, false, "log pushes instead of sending them")
	flags.StringVar(&f.since, sinceFlagName, "", "replay from this RFC 3339 time instead of the stored watermark")
}

// toOptions validates the flags and converts them to run options.
func (f *runFlags) toOptions() (runOptions, error) {
	opts := runOptions{dryRun: f.dryRun}
	if f.since == "" {
		return opts, nil
	}

	since, err := time.Parse(time.RFC3339, f.since)
	if err != nil {
		return runOptions{}, fmt.Errorf("invalid --%s value %q (want RFC 3339): %w", sinceFlagName, f.since, err)
	}
	since = since.UTC()
	opts.since = &since

	return opts, nil
}

// rootCmd constructs the root command.
func rootCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: heredoc.Doc(appShort),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.AddCommand(
		initCmd(),
		listCmd(),
		runCmd(logger),
	)

	return cmd
}

// runCmd constructs the command that runs one sync cycle.
func runCmd(logger *slog.Logger) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:     runCmdUse,
		Short:   heredoc.Doc(runCmdShort),
		Long:    heredoc.Doc(runCmdLong),
		Example: heredoc.Doc(runCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: validSyncKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions()
			if err != nil {
				return err
			}

			settings, err := config.LoadLocal()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), settings, opts, logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out, err := a.Run(cmd.Context(), args[0])
			if out != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (fetched %d, pushed %d, skipped %d, failed %d)\n",
					out.Key, out.Status, out.Fetched, out.Pushed, out.Skipped, len(out.Failures))
				for _, f := range out.Failures {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", f.ID, f.Err)
				}
			}
			return err
		},
	}

	flags.addFlags(cmd)
	return cmd
}

// listCmd constructs the command that prints the sync keys.
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: heredoc.Doc(listCmdShort),

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(runners.Keys(), "\n"))
		},
	}
}

// initCmd constructs the command that writes the sample config file.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: heredoc.Doc(initCmdShort),

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout())
		},
	}
}

// validSyncKeys completes the sync key argument.
func validSyncKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return runners.Keys(), cobra.ShellCompDirectiveNoFileComp
}
