// Package toolcli holds the plumbing shared by the data tool binaries:
// locating the data directory, printing the single JSON document a tool
// answers with, and mapping errors to exit codes.
package toolcli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/campuskit/secretary/internal/campus"
	"github.com/campuskit/secretary/internal/tools"
)

// DefaultDataDir is used when neither --data-dir nor SECRETARY_DATA_DIR
// is set.
const DefaultDataDir = "data"

// Doc is a tool's JSON answer.
type Doc map[string]any

// OK returns a success document carrying the given fields.
func OK(fields Doc) Doc {
	d := Doc{"success": true}
	for k, v := range fields {
		d[k] = v
	}
	return d
}

// Action is the body of a tool subcommand. A returned error wrapping
// campus.ErrNotFound or campus.ErrInvalid is printed as a failure
// document; any other error is a usage or system fault reported on
// stderr with a non-zero exit.
type Action func(cmd *cobra.Command, args []string) (Doc, error)

// Run adapts an Action to cobra's RunE.
func Run(action Action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		doc, err := action(cmd, args)
		if err != nil {
			if !reported(err) {
				return err
			}
			doc = Doc{"success": false, "message": err.Error()}
		}
		return WriteJSON(cmd.OutOrStdout(), doc)
	}
}

func reported(err error) bool {
	return errors.Is(err, campus.ErrNotFound) || errors.Is(err, campus.ErrInvalid)
}

// WriteJSON prints v as one line of JSON without HTML escaping.
func WriteJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// AddDataDirFlag registers the persistent --data-dir flag on root.
func AddDataDirFlag(root *cobra.Command) {
	root.PersistentFlags().String("data-dir", "", "data directory (default $"+tools.DataDirEnv+" or ./"+DefaultDataDir+")")
}

// DataDir returns the data directory for cmd and creates it if needed.
func DataDir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("data-dir")
	if dir == "" {
		dir = os.Getenv(tools.DataDirEnv)
	}
	if dir == "" {
		dir = DefaultDataDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// Execute runs root with args and returns the process exit code. Errors go
// to stderr as plain text so the dispatcher can relay them.
func Execute(root *cobra.Command, stdout, stderr io.Writer, args []string) int {
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// RequireSubcommand makes root fail when run without a subcommand instead
// of printing help with a zero exit.
func RequireSubcommand(root *cobra.Command) {
	root.Args = cobra.NoArgs
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("missing command; see %s --help", cmd.Name())
	}
}
