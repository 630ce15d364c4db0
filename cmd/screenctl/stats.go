package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func stats(c *cli.Context) error {
	// Args
	if c.Args().Len() != 0 {
		return errors.New("stats requires no arguments")
	}

	// Command-specific flags
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	client, _, err := requireSession(c)
	if err != nil {
		return err
	}

	dashboard, err := client.DashboardStats(c.Context)
	if err != nil {
		return errors.Wrap(err, "error fetching statistics")
	}

	return writeOutput(c.App.Writer, output, dashboard, func(table *uitable.Table) {
		table.AddRow("TODAY'S CASES", "POSITIVE RATE", "TOTAL PATIENTS")
		table.AddRow(
			dashboard.TodayCases,
			fmt.Sprintf("%.1f%%", dashboard.PositiveRate*100),
			dashboard.TotalPatients,
		)
		table.AddRow("")
		table.AddRow("DAY", "SCREENINGS")
		for _, point := range dashboard.WeeklyTrend.Points() {
			table.AddRow(point.Day, point.Count)
		}
	})
}
