package main

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fileimport/internal/config"
	"github.com/JonMunkholm/fileimport/internal/core"
	"github.com/JonMunkholm/fileimport/internal/database"
	"github.com/JonMunkholm/fileimport/internal/fileimport"
	"github.com/JonMunkholm/fileimport/internal/logging"
)

// connectFunc opens the database used by stage and run. The returned
// function releases it.
type connectFunc func(ctx context.Context, cfg config.DatabaseConfig) (core.Database, func(), error)

// app carries state shared by the subcommands.
type app struct {
	cfg     *config.Config
	connect connectFunc

	charset        string
	quote          string
	multiline      bool
	replaceInvalid bool
	mergePolicy    string
	logLevel       string
}

func newApp() *app {
	return &app{connect: connectPool}
}

func connectPool(ctx context.Context, cfg config.DatabaseConfig) (core.Database, func(), error) {
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Close, nil
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fileimport",
		Short: "Preview import files and run flat-rate term imports",
		Long: `fileimport reads text import files in any charset, joins quoted values
that span several lines into one logical line, and loads flat-rate term
files into the i_flatrate_term staging table.

Settings default to the IMPORT_*, DATABASE_URL and LOG_* environment
variables; a .env file in the working directory is loaded first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.charset, "charset", "", "file charset (default IMPORT_CHARSET)")
	flags.StringVar(&a.quote, "quote", "", "text delimiter for multi-line values (default IMPORT_QUOTE)")
	flags.BoolVar(&a.multiline, "multiline", true, "join quoted values spanning several lines (default IMPORT_MULTILINE)")
	flags.BoolVar(&a.replaceInvalid, "replace-invalid", false, "replace undecodable bytes instead of failing")
	flags.StringVar(&a.mergePolicy, "merge-policy", "", "start or legacy: where the line opening a quote goes (default IMPORT_MERGE_POLICY)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default LOG_LEVEL)")

	cmd.AddCommand(
		newPreviewCmd(a),
		newLinesCmd(a),
		newStageCmd(a),
		newRunCmd(a),
	)
	return cmd
}

// init loads configuration once flags are parsed.
func (a *app) init(cmd *cobra.Command) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logging.Setup(level, cfg.Logging.Format, cmd.ErrOrStderr())
	return nil
}

// service builds a Service, connecting to the database when withDB is set.
func (a *app) service(ctx context.Context, withDB bool) (*core.Service, func(), error) {
	if !withDB {
		return core.NewService(nil, a.cfg.Import), func() {}, nil
	}
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}

	db, closeDB, err := a.connect(ctx, a.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return core.NewService(db, a.cfg.Import), closeDB, nil
}

// readOptions applies the flags the user set on top of the service defaults.
func (a *app) readOptions(cmd *cobra.Command, opts core.ReadOptions) (core.ReadOptions, error) {
	flags := cmd.Flags()
	if flags.Changed("charset") {
		opts.Charset = a.charset
	}
	if flags.Changed("quote") {
		r, err := singleRune("quote", a.quote)
		if err != nil {
			return opts, err
		}
		opts.Quote = r
	}
	if flags.Changed("multiline") {
		opts.Multiline = a.multiline
	}
	if flags.Changed("replace-invalid") {
		opts.ReplaceInvalid = a.replaceInvalid
	}
	if flags.Changed("merge-policy") {
		p, err := fileimport.ParseMergePolicy(a.mergePolicy)
		if err != nil {
			return opts, err
		}
		opts.MergePolicy = p
	}
	return opts, nil
}

func singleRune(name, v string) (rune, error) {
	if utf8.RuneCountInString(v) != 1 {
		return 0, fmt.Errorf("--%s must be a single character, got %q", name, v)
	}
	r, _ := utf8.DecodeRuneInString(v)
	return r, nil
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
