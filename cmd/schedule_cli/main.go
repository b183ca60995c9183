// Command schedule_cli manages the student's personal schedule.
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
		Use:   "schedule_cli",
		Short: "Personal schedule tool",
	}
	toolcli.AddDataDirFlag(root)
	toolcli.RequireSubcommand(root)

	store := func(cmd *cobra.Command) (*campus.ScheduleStore, error) {
		dir, err := toolcli.DataDir(cmd)
		if err != nil {
			return nil, err
		}
		return campus.NewScheduleStore(dir, now), nil
	}

	var date, clock, event, timeRange string
	var duration, id int

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			e, err := s.Add(date, clock, event, duration)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"id": e.ID, "message": "event added", "data": e}), nil
		}),
	}
	addCmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD, today or tomorrow")
	addCmd.Flags().StringVar(&clock, "time", "", "start time HH:MM")
	addCmd.Flags().StringVar(&event, "event", "", "what is happening")
	addCmd.Flags().IntVar(&duration, "duration", campus.DefaultDuration, "length in minutes")
	addCmd.MarkFlagRequired("date")
	addCmd.MarkFlagRequired("time")
	addCmd.MarkFlagRequired("event")

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "List the events on a day",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			events, err := s.Query(date, timeRange)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"data": events}), nil
		}),
	}
	queryCmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD, today or tomorrow")
	queryCmd.Flags().StringVar(&timeRange, "time-range", "", "only events starting in HH:MM-HH:MM")
	queryCmd.MarkFlagRequired("date")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an event",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			if err := s.Delete(id); err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"message": "event deleted"}), nil
		}),
	}
	deleteCmd.Flags().IntVar(&id, "id", 0, "event id")
	deleteCmd.MarkFlagRequired("id")

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Change an event's time or description",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			e, err := s.Update(id, clock, event)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"message": "event updated", "data": e}), nil
		}),
	}
	updateCmd.Flags().IntVar(&id, "id", 0, "event id")
	updateCmd.Flags().StringVar(&clock, "time", "", "new start time HH:MM")
	updateCmd.Flags().StringVar(&event, "event", "", "new description")
	updateCmd.MarkFlagRequired("id")

	root.AddCommand(addCmd, queryCmd, deleteCmd, updateCmd)
	return root
}
