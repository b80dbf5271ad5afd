package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/szlkpr/ims-ml-service/internal/config"
	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/events"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch-reorders",
		Usage: "Print reorder events as they are published",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "consumer",
				Usage: "Durable consumer name",
				Value: "forecastctl",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load().Events
			client, err := events.NewClient(c.Context, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			consumeCtx, err := client.SubscribeReorders(c.Context, c.String("consumer"), func(ev domain.ReorderEvent) error {
				return writeJSON(c.App.Writer, ev)
			})
			if err != nil {
				return err
			}
			defer consumeCtx.Stop()

			fmt.Fprintf(c.App.ErrWriter, "watching %s for reorder events\n", cfg.StreamName)
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
			case <-c.Context.Done():
			}
			return nil
		},
	}
}
