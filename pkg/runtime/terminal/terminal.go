package terminal

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/de-tools/export-consolidator/pkg/runtime/app"
	"github.com/de-tools/export-consolidator/pkg/runtime/terminal/commands"
	"github.com/de-tools/export-consolidator/pkg/runtime/terminal/export"
	"github.com/de-tools/export-consolidator/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	opts     Options
	reporter *export.Reporter
	rootCmd  *cobra.Command

	cfgPath string
	verbose bool
}

// Options contain configuration for the CLI
type Options struct {
	Output    io.Writer
	ErrOutput io.Writer
	// App overrides collaborators of the wired application.
	App app.Options
	Now func() time.Time
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cli := &CLI{
		opts:     opts,
		reporter: export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.Run(context.Background(), os.Args[1:])
}

// Run executes the command line given in args.
func (cli *CLI) Run(ctx context.Context, args []string) error {
	cli.rootCmd.SetArgs(args)
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "exports",
		Short:         "Retrieve and consolidate daily CSV exports from an SFTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := zerolog.InfoLevel
			if cli.verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cli.opts.ErrOutput, NoColor: true}).
				Level(level).With().Timestamp().Logger()
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}

	cmd.SetOut(cli.opts.Output)
	cmd.SetErr(cli.opts.ErrOutput)
	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "",
		"Path to the YAML config file; settings can also come from EXPORTS_* variables")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(commands.NewConsolidateCmd(cli.load, cli.reporter, cli.opts.Now))
	cmd.AddCommand(commands.NewListCmd(cli.load, cli.opts.Now))
	cmd.AddCommand(commands.NewOwnersCmd(cli.load))
	cmd.AddCommand(commands.NewCheckCmd(cli.load))
	cmd.AddCommand(commands.NewHistoryCmd(cli.load, cli.reporter))

	return cmd
}

func (cli *CLI) load(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadConfig(cli.cfgPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, cli.opts.App)
}
