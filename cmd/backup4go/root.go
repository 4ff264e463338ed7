// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	tcontext "github.com/mysqlbackup4go/backup4go/v4/context"
	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/mysqlbackup4go/backup4go/v4/log"
	"github.com/mysqlbackup4go/backup4go/v4/restore"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type globalFlags struct {
	configFile  string
	logLevel    string
	logFile     string
	logFormat   string
	metricsFile string
}

type app struct {
	flags    globalFlags
	v        *viper.Viper
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper()}
	root := &cobra.Command{
		Use:           "backup4go",
		Short:         "Logical backup and restore of a MySQL database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "config file with option keys, e.g. backup4go.yaml")
	pf.StringVar(&a.flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFile, "log-file", "", "log file path, stderr if empty")
	pf.StringVar(&a.flags.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&a.flags.metricsFile, "metrics-file", "", "write prometheus metrics of the run to this file")
	defineOptionFlags(pf)

	root.AddCommand(a.newExportCmd(), a.newImportCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if _, err := log.InitAppLogger(&log.Config{
		Level:  a.flags.logLevel,
		File:   a.flags.logFile,
		Format: a.flags.logFormat,
	}); err != nil {
		return errors.WithMessage(err, "init logger")
	}
	if err := bindOptionFlags(a.v, cmd.Flags()); err != nil {
		return errors.WithStack(err)
	}
	if a.flags.configFile != "" {
		a.v.SetConfigFile(a.flags.configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return errors.WithMessagef(err, "read config file %s", a.flags.configFile)
		}
		log.Info("using config file", zap.String("path", a.v.ConfigFileUsed()))
	}
	a.registry = prometheus.NewRegistry()
	export.RegisterMetrics(a.registry)
	restore.RegisterMetrics(a.registry)
	return nil
}

func (a *app) config() (*export.Config, error) {
	return export.ConfigFromOptions(collectOptions(a.v))
}

// flushMetrics writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (a *app) flushMetrics() {
	if a.flags.metricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(a.flags.metricsFile, a.registry); err != nil {
		log.Warn("fail to write metrics file", zap.String("path", a.flags.metricsFile), zap.Error(err))
	}
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export a database into a script archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.flushMetrics()
			conf, err := a.config()
			if err != nil {
				return err
			}
			tctx := tcontext.Background().WithContext(cmd.Context())
			result, err := export.Dump(tctx, conf)
			if err != nil {
				return err
			}
			log.Info("export finished",
				zap.String("run-id", result.RunID),
				zap.String("archive", result.ArchiveFile),
				zap.String("sql-file", result.SQLFile),
				zap.String("object-key", result.ObjectKey),
				zap.Int("skipped", len(result.Script.Skipped)))
			return nil
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <script-or-archive>",
		Short: "Replay a generated script, plain or archived, on a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()
			conf, err := a.config()
			if err != nil {
				return err
			}
			tctx := tcontext.Background().WithContext(cmd.Context())
			return restore.ImportFile(tctx, conf, args[0])
		},
	}
}
