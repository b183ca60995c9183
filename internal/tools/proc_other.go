//go:build !unix

package tools

import "os/exec"

// configureProcess is a no-op where process groups are unavailable; the
// default cancel kills the shell only.
func configureProcess(cmd *exec.Cmd) {}
