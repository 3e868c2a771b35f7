// Command chapteradmin runs the scheduled outreach jobs and their previews
// by hand, and mints session cookies for scripted API access.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dalemusser/chapterhub/internal/app/bootstrap"
	"github.com/dalemusser/chapterhub/internal/app/store/memstore"
	"github.com/dalemusser/chapterhub/internal/app/system/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const programName = "chapteradmin"

type globalOptions struct {
	mongoURI      string
	mongoDatabase string
	dryStore      bool
	debug         bool
}

// env is what every subcommand runs against.
type env struct {
	svc   *bootstrap.Services
	log   *zap.Logger
	out   io.Writer
	close func()
}

// openEnv connects to MongoDB, or builds an empty in-memory store when
// --dry-store is set. Tests replace it.
var openEnv = func(ctx context.Context, opts globalOptions, log *zap.Logger) (*bootstrap.Services, func(), error) {
	if opts.dryStore {
		db := memstore.New()
		st := bootstrap.Stores{
			Members:       db.Members(),
			Staff:         db.Staff(),
			Prayer:        db.Prayer(),
			Communication: db.Communication(),
			Logs:          db.Logs(),
			Transfers:     db.Transfers(),
			Settings:      db.Settings(),
			Tx:            db,
		}
		return bootstrap.NewServices(st, log, metrics.New()), func() {}, nil
	}

	client, err := bootstrap.Connect(ctx, bootstrap.AppConfig{MongoURI: opts.mongoURI, MongoDatabase: opts.mongoDatabase}, log)
	if err != nil {
		return nil, nil, err
	}
	db := client.Database(opts.mongoDatabase)
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
	return bootstrap.NewServices(bootstrap.MongoStores(db, log), log, metrics.New()), closeFn, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func newRootCommand(out io.Writer, cfg cliConfig) *cobra.Command {
	opts := globalOptions{}

	root := &cobra.Command{
		Use:           programName,
		Short:         "Operate ChapterHub prayer rotation and communication transfers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&opts.mongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection URI")
	root.PersistentFlags().StringVar(&opts.mongoDatabase, "mongo-database", cfg.MongoDatabase, "MongoDB database name")
	root.PersistentFlags().BoolVar(&opts.dryStore, "dry-store", false, "run against an empty in-memory store")
	root.PersistentFlags().BoolVarP(&opts.debug, "debug", "D", false, "enable debug logging")

	// open is called by the subcommands that need the engines.
	open := func(cmd *cobra.Command) (*env, error) {
		log, err := newLogger(opts.debug)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		svc, closeFn, err := openEnv(cmd.Context(), opts, log)
		if err != nil {
			return nil, err
		}
		return &env{svc: svc, log: log, out: cmd.OutOrStdout(), close: func() {
			closeFn()
			_ = log.Sync()
		}}, nil
	}

	root.AddCommand(
		prayerCommand(open),
		communicationCommand(open),
		runJobCommand(open),
		sessionCookieCommand(cfg),
	)
	return root
}

// writeJSON prints v indented to w.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
	if err := newRootCommand(os.Stdout, cfg).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
