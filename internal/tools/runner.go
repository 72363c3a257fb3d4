package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// ExitCodeNotFound is reported when the command could not be started.
const ExitCodeNotFound int32 = 127

// CommandRunner abstracts command execution for package-manager adapters.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run executes name with args and captures both output streams. A command
// that cannot be started is reported as a LaunchError with exit code 127.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), int32(exitErr.ExitCode()), err
	}

	return stdout.Bytes(), stderr.Bytes(), ExitCodeNotFound, &LaunchError{Name: name, Err: err}
}

// LaunchError reports a command that never started (missing binary,
// permission denied, invalid argv).
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return "tools: launch " + e.Name + ": " + e.Err.Error()
}

func (e *LaunchError) Unwrap() error { return e.Err }

// IsLaunchError reports whether err means the process was never started.
func IsLaunchError(err error) bool {
	var launchErr *LaunchError
	return errors.As(err, &launchErr)
}
