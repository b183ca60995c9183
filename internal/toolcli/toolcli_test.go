package toolcli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/secretary/internal/campus"
	"github.com/campuskit/secretary/internal/tools"
)

func testRoot(action Action) *cobra.Command {
	root := &cobra.Command{Use: "demo_cli"}
	AddDataDirFlag(root)
	RequireSubcommand(root)
	root.AddCommand(&cobra.Command{Use: "go", RunE: Run(action)})
	return root
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		action     Action
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name: "success document",
			args: []string{"go"},
			action: func(*cobra.Command, []string) (Doc, error) {
				return OK(Doc{"data": []int{1}, "note": "<b>"}), nil
			},
			wantStdout: `{"data":[1],"note":"<b>","success":true}` + "\n",
		},
		{
			name: "not found is a failure document",
			args: []string{"go"},
			action: func(*cobra.Command, []string) (Doc, error) {
				return nil, fmt.Errorf("event 4: %w", campus.ErrNotFound)
			},
			wantStdout: `{"message":"event 4: not found","success":false}` + "\n",
		},
		{
			name: "system error exits non-zero",
			args: []string{"go"},
			action: func(*cobra.Command, []string) (Doc, error) {
				return nil, fmt.Errorf("disk on fire")
			},
			wantCode:   1,
			wantStderr: "disk on fire\n",
		},
		{
			name:       "missing subcommand",
			args:       nil,
			wantCode:   1,
			wantStderr: "missing command; see demo_cli --help\n",
		},
		{
			name:     "unknown flag",
			args:     []string{"go", "--nope"},
			wantCode: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := Execute(testRoot(tt.action), &stdout, &stderr, tt.args)

			assert.Equal(t, tt.wantCode, code)
			if tt.wantStdout != "" || tt.wantCode != 0 {
				assert.Equal(t, tt.wantStdout, stdout.String())
			}
			if tt.wantStderr != "" {
				assert.Equal(t, tt.wantStderr, stderr.String())
			}
		})
	}
}

func TestDataDir(t *testing.T) {
	envDir := filepath.Join(t.TempDir(), "env")
	flagDir := filepath.Join(t.TempDir(), "flag")
	t.Setenv(tools.DataDirEnv, envDir)

	var got string
	root := testRoot(func(cmd *cobra.Command, _ []string) (Doc, error) {
		dir, err := DataDir(cmd)
		got = dir
		return OK(nil), err
	})
	var out bytes.Buffer
	require.Equal(t, 0, Execute(root, &out, &out, []string{"go"}))
	assert.Equal(t, envDir, got)
	assert.DirExists(t, envDir)

	root = testRoot(func(cmd *cobra.Command, _ []string) (Doc, error) {
		dir, err := DataDir(cmd)
		got = dir
		return OK(nil), err
	})
	require.Equal(t, 0, Execute(root, &out, &out, []string{"go", "--data-dir", flagDir}))
	assert.Equal(t, flagDir, got, "flag beats environment")
}
