package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aparcar/daisyway/infrastructure/config"
)

func exchangeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Load a configuration file and run the rekey event loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExchange(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "daisyway.toml", "path to the TOML configuration file")

	return cmd
}

func runExchange(configPath string) error {
	logger := config.NewLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	instance, err := config.BuildFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	if instance.Deadman != nil {
		defer instance.Deadman.Stop()
	}

	group, ctx := errgroup.WithContext(context.Background())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	group.Go(func() error {
		select {
		case <-sigCh:
			fmt.Println("\ninterrupt received, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	group.Go(func() error {
		return instance.Participant.Run(ctx)
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
