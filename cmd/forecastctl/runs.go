package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/szlkpr/ims-ml-service/internal/repository/postgres"
)

func runRuns(c *cli.Context) error {
	db, ok := c.Context.Value(dbKey).(*postgres.DB)
	if !ok {
		return fmt.Errorf("database not initialized")
	}

	runs, err := postgres.NewRunRepository(db).ListForecastRuns(c.Context, c.String("product"), c.Int("limit"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSOURCE\tHORIZON\tCERTAINTY\tFIRST")
	for _, run := range runs {
		first := "-"
		if len(run.Predictions) > 0 {
			first = fmt.Sprintf("%.2f", run.Predictions[0])
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.2f\t%s\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Source, run.Horizon, run.CertaintyScore, first)
	}
	return w.Flush()
}
