// Command viewdex serves and inspects the search catalog over database views.
//
// Logging:
//   - The base zap logger is created once per command from the loaded config
//   - Components receive it by dependency injection and scope it with fields
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/config"
	logpkg "github.com/kailas-cloud/viewdex/internal/logger"
	"github.com/kailas-cloud/viewdex/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "viewdex",
		Short:        "Filtered, paginated search over registered database views",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("env", config.GetEnv(), "environment: local, dev, docker or prod")
	rootCmd.PersistentFlags().String("config", "", "config file (default: config/<env>.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg, logger)
		},
	}

	compileCmd := &cobra.Command{
		Use:   "compile [request.json]",
		Short: "Compile a search request to SQL without executing it (reads stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return compile(cmd.Context(), cfg, logger, subjectFlag(cmd), path, cmd.OutOrStdout(), cmd.InOrStdin())
		},
	}

	entitiesCmd := &cobra.Command{
		Use:   "entities",
		Short: "List the registered entities and the columns visible to a role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return listEntities(cmd.Context(), cfg, logger, subjectFlag(cmd), cmd.OutOrStdout())
		},
	}

	typegenCmd := &cobra.Command{
		Use:   "typegen",
		Short: "Generate TypeScript request types for the registered entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			out, _ := cmd.Flags().GetString("out")
			return writeTypes(cmd.Context(), cfg, logger, out, cmd.OutOrStdout())
		},
	}
	typegenCmd.Flags().StringP("out", "o", "", "output file (default: stdout)")

	for _, c := range []*cobra.Command{compileCmd, entitiesCmd, typegenCmd} {
		c.Flags().StringSlice("role", nil, "roles to evaluate the access policy with")
		c.Flags().Bool("offline", false, "do not connect to the database; registry comes from the views file only")
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}

	rootCmd.AddCommand(serveCmd, compileCmd, entitiesCmd, typegenCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and creates the base logger for a command.
func setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	env, _ := cmd.Flags().GetString("env")
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if f := cmd.Flags().Lookup("offline"); f != nil {
		if offline, _ := cmd.Flags().GetBool("offline"); offline {
			// Keep the dialect of the configured driver so compiled SQL matches it.
			cfg.Database.Dialect = cfg.Dialect().Name
			cfg.Database.Driver = config.DriverNone
			cfg.Cache.Enabled = false
		}
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// subjectFlag builds the caller identity used by the offline tools.
func subjectFlag(cmd *cobra.Command) access.Subject {
	roles, _ := cmd.Flags().GetStringSlice("role")
	return access.Subject{ID: "cli", Roles: roles}
}
