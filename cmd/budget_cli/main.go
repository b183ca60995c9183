// Command budget_cli keeps the student's income and spending.
package main

import (
	"fmt"
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
		Use:   "budget_cli",
		Short: "Living expenses tool",
	}
	toolcli.AddDataDirFlag(root)
	toolcli.RequireSubcommand(root)

	store := func(cmd *cobra.Command) (*campus.BudgetStore, error) {
		dir, err := toolcli.DataDir(cmd)
		if err != nil {
			return nil, err
		}
		return campus.NewBudgetStore(dir, now), nil
	}

	var (
		amount               float64
		category, kind, note string
		month, date          string
		id                   int
	)

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record income or an expense dated today",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			r, bal, err := s.Add(amount, category, kind, note)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"id": r.ID, "message": "record added", "balance": bal.Balance}), nil
		}),
	}
	addCmd.Flags().Float64Var(&amount, "amount", 0, "amount")
	addCmd.Flags().StringVar(&category, "category", "", "category, e.g. food")
	addCmd.Flags().StringVar(&kind, "type", campus.Expense, "expense or income")
	addCmd.Flags().StringVar(&note, "note", "", "free-form note")
	addCmd.MarkFlagRequired("amount")
	addCmd.MarkFlagRequired("category")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a record",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			if err := s.Delete(id); err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"message": "record deleted"}), nil
		}),
	}
	deleteCmd.Flags().IntVar(&id, "id", 0, "record id")
	deleteCmd.MarkFlagRequired("id")

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Change a record's amount or note",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			var amt *float64
			var nt *string
			if cmd.Flags().Changed("amount") {
				amt = &amount
			}
			if cmd.Flags().Changed("note") {
				nt = &note
			}
			r, err := s.Update(id, amt, nt)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"message": "record updated", "data": r}), nil
		}),
	}
	updateCmd.Flags().IntVar(&id, "id", 0, "record id")
	updateCmd.Flags().Float64Var(&amount, "amount", 0, "new amount")
	updateCmd.Flags().StringVar(&note, "note", "", "new note")
	updateCmd.MarkFlagRequired("id")

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show this month's remaining money",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			bal, err := s.Balance()
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{
				"balance":         bal.Balance,
				"monthly_budget":  bal.MonthlyBudget,
				"monthly_income":  bal.MonthlyIncome,
				"monthly_expense": bal.MonthlyExpense,
			}), nil
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			records, err := s.List(campus.RecordFilter{Month: month, Date: date, Category: category})
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"data": records, "count": len(records)}), nil
		}),
	}
	listCmd.Flags().StringVar(&month, "month", "", "YYYY-MM")
	listCmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD, today or tomorrow")
	listCmd.Flags().StringVar(&category, "category", "", "category")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Total a month's spending by category",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			m, totals, err := s.Stats(month)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"month": m, "data": totals}), nil
		}),
	}
	statsCmd.Flags().StringVar(&month, "month", "", "YYYY-MM (default this month)")

	setBudgetCmd := &cobra.Command{
		Use:   "set-budget",
		Short: "Set the monthly or a category budget",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := store(cmd)
			if err != nil {
				return nil, err
			}
			if err := s.SetBudget(amount, category); err != nil {
				return nil, err
			}
			msg := fmt.Sprintf("monthly budget set to %g", amount)
			if category != "" {
				msg = fmt.Sprintf("%s budget set to %g", category, amount)
			}
			return toolcli.OK(toolcli.Doc{"message": msg}), nil
		}),
	}
	setBudgetCmd.Flags().Float64Var(&amount, "amount", 0, "budget amount")
	setBudgetCmd.Flags().StringVar(&category, "category", "", "category (default: the whole month)")
	setBudgetCmd.MarkFlagRequired("amount")

	root.AddCommand(addCmd, deleteCmd, updateCmd, balanceCmd, listCmd, statsCmd, setBudgetCmd)
	return root
}
