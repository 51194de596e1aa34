package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, args []string) (int, error) {
	return RunWithDeps(ctx, &Deps{}, args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithDeps is Run with injected collaborators and streams.
func RunWithDeps(ctx context.Context, deps *Deps, args []string, in io.Reader, out, errOut io.Writer) (int, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd(deps)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "error:", renderUserError(err, deps))
		if errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return 130, err
		}
		return 1, err
	}
	return 0, nil
}
