// Command course_cli answers questions about the class timetable.
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
		Use:   "course_cli",
		Short: "Class timetable tool",
	}
	toolcli.AddDataDirFlag(root)
	toolcli.RequireSubcommand(root)

	var date, weekday string
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "List the classes on a day",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			dir, err := toolcli.DataDir(cmd)
			if err != nil {
				return nil, err
			}
			label, courses, err := campus.NewCourseStore(dir, now).Query(date, weekday)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"weekday": label, "data": courses}), nil
		}),
	}
	queryCmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD, today or tomorrow (default today)")
	queryCmd.Flags().StringVar(&weekday, "weekday", "", "day name (monday, 周一) or 1-7")

	root.AddCommand(queryCmd)
	return root
}
