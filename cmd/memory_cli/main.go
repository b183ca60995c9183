// Command memory_cli saves and searches long-term notes about the
// student.
package main

import (
	"os"
	"path/filepath"
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
		Use:   "memory_cli",
		Short: "Memory notes tool",
	}
	toolcli.AddDataDirFlag(root)
	toolcli.RequireSubcommand(root)

	open := func(cmd *cobra.Command) (*campus.MemoryStore, error) {
		dir, err := toolcli.DataDir(cmd)
		if err != nil {
			return nil, err
		}
		return campus.NewMemoryStore(filepath.Join(dir, campus.MemoryFile), now)
	}

	var role, content, keyword string
	var limit int

	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Remember something",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := open(cmd)
			if err != nil {
				return nil, err
			}
			defer s.Close()
			n, err := s.Save(cmd.Context(), role, content)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"id": n.ID, "message": "memory saved"}), nil
		}),
	}
	saveCmd.Flags().StringVar(&role, "role", "", "user or assistant")
	saveCmd.Flags().StringVar(&content, "content", "", "what to remember")
	saveCmd.MarkFlagRequired("role")
	saveCmd.MarkFlagRequired("content")

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Search notes by keyword",
		Args:  cobra.NoArgs,
		RunE: toolcli.Run(func(cmd *cobra.Command, _ []string) (toolcli.Doc, error) {
			s, err := open(cmd)
			if err != nil {
				return nil, err
			}
			defer s.Close()
			notes, err := s.Query(cmd.Context(), keyword, limit)
			if err != nil {
				return nil, err
			}
			return toolcli.OK(toolcli.Doc{"data": notes}), nil
		}),
	}
	queryCmd.Flags().StringVar(&keyword, "keyword", "", "text to look for")
	queryCmd.Flags().IntVar(&limit, "limit", campus.DefaultMemoryLimit, "maximum notes returned")
	queryCmd.MarkFlagRequired("keyword")

	root.AddCommand(saveCmd, queryCmd)
	return root
}
