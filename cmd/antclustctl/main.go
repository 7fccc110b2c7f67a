package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"antclust/internal/config"
	"antclust/internal/storage"
	"antclust/pkg/antclust"
)

const defaultDBPath = "antclust.db"

type globalFlags struct {
	store        string
	dbPath       string
	logLevel     string
	artifactsDir string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "antclustctl",
		Short:         "Cluster tabular data with ant colony nests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.store, "store", storage.DefaultStoreKind, "store backend: memory|sqlite|badger")
	pf.StringVar(&flags.dbPath, "db-path", defaultDBPath, "sqlite database file or badger directory")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringVar(&flags.artifactsDir, "artifacts-dir", "", "write per-run artifact files under this directory")

	root.AddCommand(
		newRunCmd(flags),
		newRunsCmd(flags),
		newShowCmd(flags),
		newExportCmd(flags),
		newDeleteCmd(flags),
		newStrategiesCmd(),
		newDescribeCmd(),
	)
	return root
}

// newLogger writes text logs to terminals and JSON logs everywhere else.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

// openClient builds a client from the persistent flags. Values from a run
// configuration apply unless the matching flag was set explicitly.
func openClient(cmd *cobra.Command, flags *globalFlags, cfg *config.Config) (*antclust.Client, error) {
	storeKind, dbPath, logLevel, artifactsDir := flags.store, flags.dbPath, flags.logLevel, flags.artifactsDir
	if cfg != nil {
		changed := cmd.Flags().Changed
		if !changed("store") && cfg.Store.Kind != "" {
			storeKind = cfg.Store.Kind
		}
		if !changed("db-path") && cfg.Store.Path != "" {
			dbPath = cfg.Store.Path
		}
		if !changed("log-level") && cfg.LogLevel != "" {
			logLevel = cfg.LogLevel
		}
		if !changed("artifacts-dir") && cfg.ArtifactsDir != "" {
			artifactsDir = cfg.ArtifactsDir
		}
	}
	if storeKind == "badger" && dbPath == defaultDBPath {
		dbPath = "antclust.badger"
	}

	logger, err := newLogger(cmd.ErrOrStderr(), logLevel)
	if err != nil {
		return nil, err
	}
	return antclust.NewClient(antclust.ClientOptions{
		StoreKind:    storeKind,
		DBPath:       dbPath,
		ArtifactsDir: artifactsDir,
		Logger:       logger,
	})
}
