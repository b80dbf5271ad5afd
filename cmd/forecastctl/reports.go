package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/szlkpr/ims-ml-service/internal/config"
)

func reportsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reports",
		Usage: "Inspect archived reports",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List archived reports under a prefix",
				Before: initStorage,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Key prefix, defaults to STORAGE_PREFIX",
					},
				},
				Action: func(c *cli.Context) error {
					prefix := c.String("prefix")
					if prefix == "" {
						prefix = config.Load().Storage.Prefix
					}
					objects, err := storageFrom(c).ListObjects(c.Context, prefix)
					if err != nil {
						return err
					}
					for _, obj := range objects {
						fmt.Fprintf(c.App.Writer, "%10d  %s\n", obj.Size, obj.Key)
					}
					return nil
				},
			},
			{
				Name:   "get",
				Usage:  "Download an archived report",
				Before: initStorage,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "key",
						Usage:    "Object key",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Destination path, defaults to the key's base name",
					},
				},
				Action: func(c *cli.Context) error {
					key := c.String("key")
					dest := c.String("out")
					if dest == "" {
						dest = filepath.Base(key)
					}
					if err := storageFrom(c).DownloadObject(c.Context, key, dest); err != nil {
						return err
					}
					fmt.Fprintf(c.App.ErrWriter, "downloaded %s to %s\n", key, dest)
					return nil
				},
			},
		},
	}
}
