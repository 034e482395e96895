package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	serverrun "github.com/rzbill/eventd/internal/cmd/server"
	startrun "github.com/rzbill/eventd/internal/cmd/start"
	sweeprun "github.com/rzbill/eventd/internal/cmd/sweep"
	workerrun "github.com/rzbill/eventd/internal/cmd/worker"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "eventd",
		Short: "eventd CLI",
		Long:  "eventd stores events and completes them asynchronously through a work queue. This CLI runs the server, worker and sweep processes.",
	}

	rootCmd.AddCommand(newStartCommand())
	rootCmd.AddCommand(newServerCommand())
	rootCmd.AddCommand(newWorkerCommand())
	rootCmd.AddCommand(newSweepCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", os.Getenv("EVENTD_CONFIG"), "Path to JSON config file")
	cmd.Flags().String("db", "", "PostgreSQL URL (empty with no config uses the built-in default)")
	cmd.Flags().String("data-dir", "", "Data directory for the embedded queue (default: OS-specific)")
	cmd.Flags().String("queue-driver", "", "Queue driver: beanstalk|embedded")
	cmd.Flags().String("queue-addr", "", "beanstalkd address for --queue-driver=beanstalk")
}

func commonOptions(cmd *cobra.Command) serverrun.Options {
	configPath, _ := cmd.Flags().GetString("config")
	db, _ := cmd.Flags().GetString("db")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	driver, _ := cmd.Flags().GetString("queue-driver")
	addr, _ := cmd.Flags().GetString("queue-addr")
	return serverrun.Options{
		ConfigPath:  configPath,
		DatabaseURL: db,
		DataDir:     dataDir,
		QueueDriver: driver,
		QueueAddr:   addr,
	}
}

func newStartCommand() *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the API server, worker and sweeper in one process",
		Long:  "Runs every role in a single process over one runtime. Required for the embedded queue driver, which locks its data directory; with the beanstalk driver the roles may instead run as separate server/worker/sweep processes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := commonOptions(cmd)
			opts.HTTPAddr, _ = cmd.Flags().GetString("http")
			if err := startrun.Run(context.Background(), opts); err != nil {
				return fmt.Errorf("start error: %w", err)
			}
			return nil
		},
	}
	addCommonFlags(startCmd)
	startCmd.Flags().String("http", "", "HTTP listen address (default :8080)")
	return startCmd
}

func newServerCommand() *cobra.Command {
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the eventd HTTP API server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := commonOptions(cmd)
			opts.HTTPAddr, _ = cmd.Flags().GetString("http")
			if err := serverrun.Run(context.Background(), opts); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	addCommonFlags(startCmd)
	startCmd.Flags().String("http", "", "HTTP listen address (default :8080)")
	serverCmd.AddCommand(startCmd)
	return serverCmd
}

func newWorkerCommand() *cobra.Command {
	workerCmd := &cobra.Command{Use: "worker", Short: "Worker commands"}
	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the completion worker",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			o := commonOptions(cmd)
			if err := workerrun.Run(context.Background(), workerrun.Options{
				ConfigPath:  o.ConfigPath,
				DatabaseURL: o.DatabaseURL,
				DataDir:     o.DataDir,
				QueueDriver: o.QueueDriver,
				QueueAddr:   o.QueueAddr,
			}); err != nil {
				return fmt.Errorf("worker error: %w", err)
			}
			return nil
		},
	}
	addCommonFlags(startCmd)
	workerCmd.AddCommand(startCmd)
	return workerCmd
}

func newSweepCommand() *cobra.Command {
	sweepCmd := &cobra.Command{Use: "sweep", Short: "Reconciliation sweep commands"}

	run := func(once bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			o := commonOptions(cmd)
			if err := sweeprun.Run(context.Background(), sweeprun.Options{
				ConfigPath:  o.ConfigPath,
				DatabaseURL: o.DatabaseURL,
				DataDir:     o.DataDir,
				QueueDriver: o.QueueDriver,
				QueueAddr:   o.QueueAddr,
				Once:        once,
			}); err != nil {
				return fmt.Errorf("sweep error: %w", err)
			}
			return nil
		}
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Run the sweep on its configured interval",
		RunE:  run(false),
	}
	addCommonFlags(startCmd)
	sweepCmd.AddCommand(startCmd)

	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single sweep pass and exit",
		RunE:  run(true),
	}
	addCommonFlags(onceCmd)
	sweepCmd.AddCommand(onceCmd)

	return sweepCmd
}
