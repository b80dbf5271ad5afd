package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/szlkpr/ims-ml-service/internal/domain"
	"github.com/szlkpr/ims-ml-service/internal/service"
)

func optimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Optimize stock levels from a JSON request file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Usage:    `JSON file shaped like {"product_data": {...}, "optimization_goal": "..."}`,
				Required: true,
			},
			&cli.StringFlag{
				Name:  "goal",
				Usage: "Override the optimization goal",
			},
		},
		Action: runOptimize,
	}
}

func runOptimize(c *cli.Context) error {
	raw, err := os.ReadFile(c.String("input"))
	if err != nil {
		return err
	}

	var req domain.OptimizationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("invalid optimization request: %w", err)
	}
	if goal := c.String("goal"); goal != "" {
		req.OptimizationGoal = domain.OptimizationGoal(goal)
	}

	svc := service.NewInventoryService(nil, nil, nil, nil, service.InventoryConfig{})
	resp, err := svc.Optimize(c.Context, req)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, resp)
}
