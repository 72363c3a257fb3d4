package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/rolectl/internal/tools"
	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog/log"
)

var (
	ErrLaunch          = errors.New("pkgmgr: package manager could not be launched")
	ErrUnsupportedVerb = errors.New("pkgmgr: unsupported verb")
	ErrInvalidCommand  = errors.New("pkgmgr: invalid command template")
	ErrInvalidTool     = errors.New("pkgmgr: tool name cannot be passed as an argument")
)

// Verb selects the package-manager operation.
type Verb string

const (
	VerbInstall   Verb = "install"
	VerbUninstall Verb = "uninstall"
)

// Invoker runs one package-manager invocation for verb over tools.
// A nil return means the invocation exited successfully.
type Invoker interface {
	Invoke(ctx context.Context, verb Verb, tools []string) error
}

// ExitError reports an invocation that ran and exited unsuccessfully.
type ExitError struct {
	Verb     Verb
	ExitCode int32
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("pkgmgr: %s exited with code %d", e.Verb, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// LaunchError reports an invocation that never started.
type LaunchError struct {
	Verb Verb
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("pkgmgr: %s launch failed: %v", e.Verb, e.Err)
}

func (e *LaunchError) Unwrap() []error { return []error{ErrLaunch, e.Err} }

// IsLaunch reports whether err means the invocation could not start.
func IsLaunch(err error) bool {
	return errors.Is(err, ErrLaunch)
}

// CommandConfig holds the package-manager command lines. Each line is split
// with shell word rules; no shell ever runs them.
type CommandConfig struct {
	Install   string
	Uninstall string
	Privilege string
}

// DefaultCommandConfig targets pacman with sudo elevation.
func DefaultCommandConfig() CommandConfig {
	return CommandConfig{
		Install:   "pacman -Syu --noconfirm --needed",
		Uninstall: "pacman -Rns --noconfirm",
		Privilege: "sudo -n",
	}
}

// CommandInvoker runs the configured package manager through a CommandRunner.
type CommandInvoker struct {
	install   []string
	uninstall []string
	privilege []string
	runner    tools.CommandRunner
}

// CommandInvokerConfig wires a CommandInvoker.
type CommandInvokerConfig struct {
	Commands CommandConfig
	Runner   tools.CommandRunner
	// Elevate forces the privilege helper on or off; nil decides by the
	// effective uid.
	Elevate *bool
}

// NewCommandInvoker parses command templates and resolves privilege use.
func NewCommandInvoker(cfg CommandInvokerConfig) (*CommandInvoker, error) {
	install, err := parseTemplate("install", cfg.Commands.Install, true)
	if err != nil {
		return nil, err
	}
	uninstall, err := parseTemplate("uninstall", cfg.Commands.Uninstall, true)
	if err != nil {
		return nil, err
	}
	privilege, err := parseTemplate("privilege", cfg.Commands.Privilege, false)
	if err != nil {
		return nil, err
	}

	elevate := os.Geteuid() != 0
	if cfg.Elevate != nil {
		elevate = *cfg.Elevate
	}
	if !elevate {
		privilege = nil
	}

	runner := cfg.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &CommandInvoker{
		install:   install,
		uninstall: uninstall,
		privilege: privilege,
		runner:    runner,
	}, nil
}

func parseTemplate(name, line string, required bool) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		if required {
			return nil, fmt.Errorf("%w: %s command is empty", ErrInvalidCommand, name)
		}
		return nil, nil
	}
	parser := shellwords.NewParser()
	parser.ParseEnv = false
	parser.ParseBacktick = false
	words, err := parser.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q: %v", ErrInvalidCommand, name, line, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: %s=%q has no words", ErrInvalidCommand, name, line)
	}
	return words, nil
}

// Argv returns the full argument vector for one invocation. Tool names follow
// a "--" terminator so none can be read as an option.
func (c *CommandInvoker) Argv(verb Verb, toolNames []string) ([]string, error) {
	var base []string
	switch verb {
	case VerbInstall:
		base = c.install
	case VerbUninstall:
		base = c.uninstall
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVerb, verb)
	}
	for _, tool := range toolNames {
		if err := checkArgument(tool); err != nil {
			return nil, err
		}
	}

	argv := make([]string, 0, len(c.privilege)+len(base)+1+len(toolNames))
	argv = append(argv, c.privilege...)
	argv = append(argv, base...)
	argv = append(argv, "--")
	argv = append(argv, toolNames...)
	return argv, nil
}

func checkArgument(tool string) error {
	if tool == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if strings.IndexByte(tool, 0) >= 0 {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidTool, tool)
	}
	return nil
}

// Invoke runs one package-manager process and classifies its outcome.
func (c *CommandInvoker) Invoke(ctx context.Context, verb Verb, toolNames []string) error {
	argv, err := c.Argv(verb, toolNames)
	if err != nil {
		return err
	}
	log.Debug().Str("verb", string(verb)).Strs("argv", argv).Msg("pkgmgr exec")

	_, stderr, exitCode, err := c.runner.Run(ctx, argv[0], argv[1:]...)
	if err == nil {
		return nil
	}
	if tools.IsLaunchError(err) {
		return &LaunchError{Verb: verb, Err: err}
	}
	return &ExitError{
		Verb:     verb,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(string(stderr)),
		Err:      err,
	}
}
