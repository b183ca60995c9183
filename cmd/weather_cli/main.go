// Command weather_cli returns a mock daily forecast.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/campuskit/secretary/internal/campus"
	"github.com/campuskit/secretary/internal/toolcli"
)

func main() {
	os.Exit(toolcli.Execute(newRootCmd(time.Now), os.Stdout, os.Stderr, os.Args[1:]))
}

func newRootCmd(now func() time.Time) *cobra.Command {
	root := &cobra.Command{
		Use:   "weather_cli",
		Short: "Weather forecast tool",
	}
	toolcli.RequireSubcommand(root)

	var date string
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Forecast for a day",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(*cobra.Command, []string) (toolcli.Doc, error) {
			fc, err := campus.NewForecaster(now).Query(date)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"data": fc}), nil
		}),
	}
	queryCmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD, today or tomorrow")
	queryCmd.MarkFlagRequired("date")

	root.AddCommand(queryCmd)
	return root
}
