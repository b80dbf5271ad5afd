package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/szlkpr/ims-ml-service/internal/config"
	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/forecast"
	"github.com/szlkpr/ims-ml-service/internal/ingest"
	"github.com/szlkpr/ims-ml-service/internal/report"
	"github.com/szlkpr/ims-ml-service/internal/service"
)

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Run the trend forecast for one product from a CSV or XLSX history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Usage:    "History file with product, date and value columns",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "product",
				Usage:    "Product to forecast",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "horizon",
				Usage: "Days to forecast",
				Value: domain.DefaultForecastHorizon,
			},
			&cli.Int64Flag{
				Name:    "seed",
				Usage:   "Random seed for the noise term, 0 for a clock seed",
				EnvVars: []string{"FORECASTER_FALLBACK_SEED"},
			},
			&cli.StringFlag{
				Name:  "csv",
				Usage: "Write the forecast table to this path",
			},
			&cli.StringFlag{
				Name:  "png",
				Usage: "Write the forecast chart to this path",
			},
			&cli.BoolFlag{
				Name:  "archive",
				Usage: "Upload the chart and table to report storage",
			},
		},
		Action: runPredict,
	}
}

func runPredict(c *cli.Context) error {
	series, err := ingest.LoadFile(c.String("input"))
	if err != nil {
		return err
	}
	product := c.String("product")
	history, err := series.Product(product)
	if err != nil {
		return err
	}

	req := domain.NewForecastRequest()
	req.ProductName = product
	req.HistoricalData = history
	req.ForecastHorizon = c.Int("horizon")

	fallback := forecast.NewFallback(forecast.NewRandSource(c.Int64("seed")))
	gateway := service.NewGateway(nil, fallback, nil, nil, service.GatewayConfig{})
	resp, err := gateway.Predict(c.Context, req)
	if err != nil {
		return err
	}

	var csvBuf, pngBuf bytes.Buffer
	if err := report.WriteForecastCSV(&csvBuf, product, history, &resp.ForecastResult); err != nil {
		return fmt.Errorf("render csv: %w", err)
	}
	if err := report.RenderForecastPNG(&pngBuf, product, history, &resp.ForecastResult); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	if path := c.String("csv"); path != "" {
		if err := os.WriteFile(path, csvBuf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	if path := c.String("png"); path != "" {
		if err := os.WriteFile(path, pngBuf.Bytes(), 0o644); err != nil {
			return err
		}
	}

	if c.Bool("archive") {
		if err := initStorage(c); err != nil {
			return err
		}
		prefix := config.Load().Storage.Prefix
		now := time.Now()
		for ext, data := range map[string][]byte{"csv": csvBuf.Bytes(), "png": pngBuf.Bytes()} {
			key := report.Key(prefix, "forecast", product, now, ext)
			if err := storageFrom(c).UploadObject(c.Context, key, data); err != nil {
				return err
			}
			fmt.Fprintf(c.App.ErrWriter, "archived %s\n", key)
		}
	}

	return writeJSON(c.App.Writer, resp)
}
