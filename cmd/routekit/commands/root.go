package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd *cobra.Command

func Execute(version string) error {
	rootCmd = newRootCmd(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routekit",
		Short: "routekit - declarative routes for echo",
		Long: `routekit mounts routes declared in YAML or JSON files on an echo server.
Each route names its handler, its validation schemas and whether it needs a
bearer token.

This CLI serves a route directory and scaffolds projects, CRUD modules and
mock APIs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newMockCmd())

	return cmd
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the route directory",
		Long:  "Load the configuration, register the route files and serve them until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "config/config.yaml", "config file path")
	cmd.Flags().StringVar(&opts.dotEnvPath, "dotenv", ".env", ".env file path")
	cmd.Flags().StringVar(&opts.loader, "loader", "bofry", "config loader: bofry (YAML, .env, env) or simple (YAML, env)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "restart when route or schema files change")

	return cmd
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Initialize a new routekit project",
		Long:  "Create the routes, schemas, handlers, services and config directories with an example route",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			fmt.Printf("Initializing routekit project in %s...\n", path)
			return initProject(path)
		},
	}
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate code from templates",
		Long:  "Generate handlers, services and route files",
	}

	cmd.AddCommand(newGenerateCrudCmd())

	return cmd
}

func newGenerateCrudCmd() *cobra.Command {
	var opts crudOptions

	cmd := &cobra.Command{
		Use:   "crud [entity]",
		Short: "Generate a CRUD handler, service and route file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.entity = args[0]
			return generateCrud(".", opts)
		},
	}

	cmd.Flags().StringVar(&opts.schema, "schema", "", "JSON schema file validating the request body")
	cmd.Flags().StringVar(&opts.export, "export", "", "definition of the schema file to use")
	cmd.Flags().BoolVar(&opts.validation, "validation", false, "add validation to the generated routes")

	return cmd
}

func newMockCmd() *cobra.Command {
	var opts mockOptions

	cmd := &cobra.Command{
		Use:   "mock [entity]",
		Short: "Serve fabricated records matching a JSON schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.entity = args[0]
			return runMock(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.schema, "schema", "", "JSON schema file of one record")
	cmd.Flags().StringVar(&opts.export, "export", "", "definition of the schema file to use")
	cmd.Flags().IntVar(&opts.count, "count", 10, "records per response")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 5050, "listen port")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}
