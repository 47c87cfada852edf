package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joeycmlam/jira-agent/internal/bootstrap"
)

var (
	osExecutable = os.Executable
	newExecer    = func() bootstrap.Execer { return bootstrap.SystemExecer{} }
	exit         = os.Exit
)

type options struct {
	strict    bool
	noProfile bool
	envFile   string
	target    string
	stdout    io.Writer
	stderr    io.Writer
}

func main() {
	opts := options{stdout: os.Stdout, stderr: os.Stderr}
	flag.BoolVar(&opts.strict, "strict", true, "validate required JIRA variables before launching")
	flag.BoolVar(&opts.noProfile, "no-profile", false, "skip sourcing the shell profile")
	flag.StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default <project root>/.env)")
	flag.StringVar(&opts.target, "target", "", "executable to hand control to (default jira-mcp next to the launcher)")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		if errors.Is(err, bootstrap.ErrMissingConfig) {
			// The remediation message has already been printed.
			exit(1)
			return
		}
		log.Fatalf("Launcher failed: %v", err)
	}
}

func run(ctx context.Context, opts options) error {
	exe, err := osExecutable()
	if err != nil {
		return fmt.Errorf("resolve launcher executable: %w", err)
	}

	launcher := &bootstrap.Launcher{
		Paths:     bootstrap.ResolvePaths(exe),
		EnvFile:   opts.envFile,
		Target:    opts.target,
		Strict:    opts.strict,
		NoProfile: opts.noProfile,
		Execer:    newExecer(),
		Stdout:    opts.stdout,
		Stderr:    opts.stderr,
	}

	// On success this does not return: the process image is replaced.
	return launcher.Run(ctx)
}
