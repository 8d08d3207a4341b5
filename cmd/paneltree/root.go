package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/paneltree"
	"github.com/aretw0/paneltree/internal/cli"
	"github.com/aretw0/paneltree/pkg/document"
	"github.com/aretw0/paneltree/pkg/observability"
)

var opts cli.Options

var rootCmd = &cobra.Command{
	Use:          "paneltree",
	Short:        "Paneltree resolves and maintains trees of data-visualization panels",
	Long:         `Paneltree picks handler stacks for typed expressions and keeps configuration trees consistent as their inputs change.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.Catalog, "catalog", "", "YAML handler catalog to register on top of the standard handlers")
	flags.StringSliceVar(&opts.AllowList, "allow", nil, "Restrict stacks to these handler ids")
	flags.BoolVar(&opts.SubStack, "sub-stack", false, "Hide namespaced handler ids except projection and maybe adapters")
	flags.StringVar(&opts.PinTo, "pin", "", "Handler id nodes stay on when an allow-list is active")
	flags.StringVar(&opts.Store, "store", cli.StoreFile, "Document store: memory, file or redis")
	flags.StringVar(&opts.DataDir, "data-dir", "", "Directory of the file store")
	flags.StringVar(&opts.FileFormat, "file-format", "json", "File store format: json or yaml")
	flags.StringVar(&opts.RedisAddr, "redis-addr", "localhost:6379", "Address of the redis store")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

// app bundles what most commands need.
type app struct {
	logger *slog.Logger
	engine *paneltree.Engine
	docs   *document.Manager
}

func newApp(metrics *observability.Metrics) (*app, error) {
	logger, err := opts.Logger()
	if err != nil {
		return nil, err
	}
	engine, err := opts.Engine(logger, metrics)
	if err != nil {
		return nil, err
	}
	docs, err := opts.Manager(engine.Codec(), logger)
	if err != nil {
		return nil, err
	}
	return &app{logger: logger, engine: engine, docs: docs}, nil
}
