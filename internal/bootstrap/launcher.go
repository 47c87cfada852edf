package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/joeycmlam/jira-agent/internal/config"
)

// DefaultTarget is the binary the launcher hands control to when no
// explicit target is configured. It is resolved next to the launcher's own
// executable first, then via PATH.
const DefaultTarget = "jira-mcp"

// Execer replaces the current process image with a target executable.
// This abstraction allows tests to capture the exec call instead of
// actually replacing the test process.
type Execer interface {
	Exec(path string, argv []string, environ []string) error
}

// SystemExecer is the production implementation using execve
type SystemExecer struct{}

// Exec replaces the current process image. On success it never returns.
func (SystemExecer) Exec(path string, argv []string, environ []string) error {
	return syscall.Exec(path, argv, environ)
}

// MockExecer records the exec call for assertions in tests
type MockExecer struct {
	Path    string
	Argv    []string
	Environ []string
	Called  bool
	Err     error
}

// Exec records the call and returns the configured error
func (m *MockExecer) Exec(path string, argv []string, environ []string) error {
	m.Called = true
	m.Path = path
	m.Argv = argv
	m.Environ = environ
	return m.Err
}

// Paths holds the locations the launcher derives from its own executable.
type Paths struct {
	BinDir  string // directory containing the launcher executable
	Root    string // project root (parent of BinDir)
	EnvFile string // <root>/.env
}

// ResolvePaths computes the launcher's base paths from its executable
// location. Pure path manipulation; none of the files need to exist.
func ResolvePaths(executable string) Paths {
	binDir := filepath.Dir(executable)
	root := filepath.Dir(binDir)
	return Paths{
		BinDir:  binDir,
		Root:    root,
		EnvFile: filepath.Join(root, ".env"),
	}
}

// Launcher prepares a process environment from a dotenv file and optional
// shell profile, validates required configuration, and transfers control to
// the target executable.
type Launcher struct {
	// Paths for the project root and dotenv file
	Paths Paths

	// EnvFile overrides Paths.EnvFile when non-empty
	EnvFile string

	// Target overrides the default target executable when non-empty
	Target string

	// Strict enables required-variable validation before exec
	Strict bool

	// NoProfile disables shell profile sourcing for reproducible runs
	NoProfile bool

	// Sourcer loads the shell profile; defaults to real shell execution
	Sourcer ProfileSourcer

	// Execer performs the process replacement; defaults to execve
	Execer Execer

	// BaseEnviron is the inherited process environment; defaults to os.Environ()
	BaseEnviron []string

	// Stdout and Stderr receive the banner and diagnostics
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the bootstrap sequence: load dotenv, source profile,
// validate, print the redacted banner, exec the target. On the success path
// this call does not return (the process image is replaced).
func (l *Launcher) Run(ctx context.Context) error {
	l.applyDefaults()

	env := l.buildEnvironment(ctx)

	if l.Strict {
		if missing := config.MissingVars(env); len(missing) > 0 {
			fmt.Fprint(l.Stderr, remediationMessage(missing))
			return ErrMissingConfig
		}

		cfg, err := config.FromMap(env)
		if err != nil {
			fmt.Fprintf(l.Stderr, "Error: invalid configuration: %v\n", err)
			return fmt.Errorf("invalid configuration: %w", err)
		}
		fmt.Fprintf(l.Stdout, "Starting JIRA MCP server (%s)\n", cfg.Summary())
	}

	target, err := l.resolveTarget()
	if err != nil {
		return err
	}

	log.Printf("[Launcher] Handing off to %s", target)
	if err := l.Execer.Exec(target, []string{target}, ToEnviron(env)); err != nil {
		return fmt.Errorf("exec %s: %w", target, err)
	}
	return nil
}

// buildEnvironment merges the inherited environment, the dotenv file, and
// the best-effort shell profile, in increasing precedence.
func (l *Launcher) buildEnvironment(ctx context.Context) map[string]string {
	env := config.EnvironMap(l.BaseEnviron)

	envFile := l.EnvFile
	if envFile == "" {
		envFile = l.Paths.EnvFile
	}
	fileVals, err := LoadEnvFile(envFile)
	if err != nil {
		// A malformed dotenv file is treated like a missing one: warn and
		// rely on the variables already present in the environment.
		log.Printf("[Launcher] Warning: %v", err)
		fileVals = map[string]string{}
	}
	env = Merge(env, fileVals)

	if !l.NoProfile {
		home, err := os.UserHomeDir()
		if err == nil {
			if profileVals, err := l.Sourcer.Source(ctx, home); err == nil {
				env = Merge(env, profileVals)
			}
		}
	}

	return env
}

// resolveTarget locates the executable to hand control to. A sibling binary
// next to the launcher wins; otherwise PATH decides.
func (l *Launcher) resolveTarget() (string, error) {
	target := l.Target
	if target == "" {
		target = DefaultTarget
	}

	if filepath.IsAbs(target) || filepath.Dir(target) != "." {
		return target, nil
	}

	sibling := filepath.Join(l.Paths.BinDir, target)
	if _, err := os.Stat(sibling); err == nil {
		return sibling, nil
	}

	path, err := exec.LookPath(target)
	if err != nil {
		return "", fmt.Errorf("target executable %s not found: %w", target, err)
	}
	return path, nil
}

func (l *Launcher) applyDefaults() {
	if l.Sourcer == nil {
		l.Sourcer = NewShellProfileSourcer()
	}
	if l.Execer == nil {
		l.Execer = SystemExecer{}
	}
	if l.BaseEnviron == nil {
		l.BaseEnviron = os.Environ()
	}
	if l.Stdout == nil {
		l.Stdout = os.Stdout
	}
	if l.Stderr == nil {
		l.Stderr = os.Stderr
	}
}

// remediationMessage builds the multi-line diagnostic shown when required
// variables are absent, including export examples.
func remediationMessage(missing []string) string {
	msg := "Error: Missing required environment variables: "
	for i, name := range missing {
		if i > 0 {
			msg += ", "
		}
		msg += name
	}
	msg += "\n\nPlease set the following environment variables:\n"
	msg += "  JIRA_URL - Your JIRA instance URL (e.g., https://your-domain.atlassian.net)\n"
	msg += "  JIRA_USER - Your JIRA username/email\n"
	msg += "  JIRA_API_TOKEN - Your JIRA API token\n"
	msg += "\nExample:\n"
	msg += "  export JIRA_URL=\"https://your-domain.atlassian.net\"\n"
	msg += "  export JIRA_USER=\"your@email.com\"\n"
	msg += "  export JIRA_API_TOKEN=\"your_token\"\n"
	return msg
}
