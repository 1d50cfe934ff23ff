// Package commands implements the gestionctl administration CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gestion/internal/cli"
	"gestion/internal/config"
	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/services"
	"gestion/internal/storage"
)

// env holds the resolved settings and the lazily opened repository.
type env struct {
	v      *viper.Viper
	cfg    *config.Config
	repo   *storage.SQLiteRepository
	svc    *cli.Services
	logger *log.Logger
}

func Execute() error {
	cli.LoadEnvFile()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:           "gestionctl",
		Short:         "Administration tasks for the gestion backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.repo != nil {
				return e.repo.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "optional config file (yaml, json or toml)")
	flags.String("db", "", "SQLite database path (default from SQLITE_DB_PATH)")
	flags.String("timezone", "", "business time zone (default from TIMEZONE)")
	flags.String("log-level", "warn", "log level")
	_ = e.v.BindPFlag("db", flags.Lookup("db"))
	_ = e.v.BindPFlag("timezone", flags.Lookup("timezone"))
	_ = e.v.BindPFlag("log_level", flags.Lookup("log-level"))

	e.v.SetEnvPrefix("GESTION")
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()

	root.AddCommand(migrateCmd(e), userCmd(e), tasaCmd(e), reportCmd(e))
	return root
}

// load resolves settings: flags, then GESTION_* variables, then the config
// file, then the server's own environment.
func (e *env) load(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		e.v.SetConfigFile(path)
		if err := e.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	e.cfg = config.Load()
	if db := e.v.GetString("db"); db != "" {
		e.cfg.SQLiteDBPath = db
	}
	if tz := e.v.GetString("timezone"); tz != "" {
		e.cfg.Timezone = tz
	}
	if name := e.v.GetString("business_name"); name != "" {
		e.cfg.BusinessName = name
	}

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(e.v.GetString("log_level"))
	logCfg.Output = cmd.ErrOrStderr()
	logCfg.Component = "gestionctl"
	e.logger = log.New(logCfg)
	return nil
}

// services opens the repository and wires the services on first use.
func (e *env) services() (*cli.Services, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	loc, err := e.cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", e.cfg.Timezone, err)
	}
	repo, err := storage.NewSQLiteRepository(e.cfg.SQLiteDBPath, loc)
	if err != nil {
		return nil, err
	}
	e.repo = repo
	e.svc = cli.BuildServices(e.cfg, repo, nil, e.logger)
	return e.svc, nil
}

// adminContext runs CLI mutations as the system admin.
func adminContext(cmd *cobra.Command) context.Context {
	return services.WithActor(cmd.Context(), services.Actor{Username: services.SystemActor, Rol: core.RolAdmin})
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
