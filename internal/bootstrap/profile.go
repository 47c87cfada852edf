package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// profileTimeout bounds how long a shell profile may take to evaluate.
// Sourcing is advisory; a hung rc file must not stall the launcher.
const profileTimeout = 10 * time.Second

// Runner executes a command and returns its stdout.
// This abstraction allows mocking shell invocations in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the production implementation using os/exec
type ExecRunner struct{}

// Run executes a command using os/exec
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// MockRunner is a test implementation that returns predefined responses
type MockRunner struct {
	// RunFunc is called when Run is invoked
	RunFunc func(name string, args ...string) ([]byte, error)

	// Calls tracks all command invocations
	Calls []MockCall
}

// MockCall represents a single command invocation
type MockCall struct {
	Name string
	Args []string
}

// Run executes the mock function
func (m *MockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.Calls = append(m.Calls, MockCall{Name: name, Args: args})
	if m.RunFunc != nil {
		return m.RunFunc(name, args...)
	}
	return []byte(""), nil
}

// ProfileSourcer loads additional environment state from a user's shell
// profile. Implementations are best-effort: the launcher swallows any error.
type ProfileSourcer interface {
	Source(ctx context.Context, home string) (map[string]string, error)
}

// profileCandidates is checked in order; the first rc file that exists wins.
var profileCandidates = []struct {
	rc    string
	shell string
}{
	{".zshrc", "zsh"},
	{".bashrc", "bash"},
}

// ShellProfileSourcer sources the user's shell rc file by running the
// matching shell and capturing the resulting environment as NUL-separated
// KEY=VALUE records.
type ShellProfileSourcer struct {
	runner Runner
}

// NewShellProfileSourcer creates a sourcer backed by real shell execution
func NewShellProfileSourcer() *ShellProfileSourcer {
	return &ShellProfileSourcer{runner: ExecRunner{}}
}

// NewShellProfileSourcerWithRunner creates a sourcer with an injected runner
func NewShellProfileSourcerWithRunner(r Runner) *ShellProfileSourcer {
	return &ShellProfileSourcer{runner: r}
}

// Source evaluates the first available profile and returns the environment
// it produces. Returns an empty map when no profile file exists.
func (s *ShellProfileSourcer) Source(ctx context.Context, home string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, profileTimeout)
	defer cancel()

	for _, candidate := range profileCandidates {
		rcPath := filepath.Join(home, candidate.rc)
		if _, err := os.Stat(rcPath); err != nil {
			continue
		}

		shell, err := exec.LookPath(candidate.shell)
		if err != nil {
			continue
		}

		// Profile output goes to /dev/null so banners and prompts in the rc
		// file cannot corrupt the env -0 records.
		script := fmt.Sprintf("source %q >/dev/null 2>&1; env -0", rcPath)
		out, err := s.runner.Run(ctx, shell, "-c", script)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", rcPath, err)
		}
		return parseNulEnv(out), nil
	}

	return map[string]string{}, nil
}

// parseNulEnv parses NUL-separated KEY=VALUE records as emitted by env -0.
func parseNulEnv(out []byte) map[string]string {
	env := map[string]string{}
	for _, record := range strings.Split(string(out), "\x00") {
		key, value, ok := strings.Cut(record, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}
