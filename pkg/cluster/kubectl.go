package cluster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Kubectl runs the kubectl binary against one context.
type Kubectl struct {
	Path       string
	Kubeconfig string
	Context    string
	Timeout    time.Duration
}

// Run executes kubectl with args and returns trimmed stdout. On failure the error carries
// kubectl's stderr.
func (k *Kubectl) Run(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("no kubectl command provided")
	}
	if k.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.Timeout)
		defer cancel()
	}

	full := k.args(args)
	slog.Info("cluster: executing kubectl command", "command", strings.Join(full, " "), "context", k.Context)

	cmd := exec.CommandContext(ctx, k.binary(), full...)
	cmd.Env = os.Environ()
	if k.Kubeconfig != "" {
		cmd.Env = append(cmd.Env, "KUBECONFIG="+k.Kubeconfig)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("kubectl timed out after %s", k.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		slog.Error("cluster: kubectl command failed", "context", k.Context, "stderr", msg)
		return "", &CommandError{Args: full, Stderr: msg, Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (k *Kubectl) binary() string {
	if k.Path != "" {
		return k.Path
	}
	return "kubectl"
}

func (k *Kubectl) args(args []string) []string {
	full := make([]string, 0, len(args)+2)
	if k.Context != "" {
		full = append(full, "--context", k.Context)
	}
	return append(full, args...)
}

// CommandError is a kubectl invocation that exited non-zero.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	return e.Stderr
}

func (e *CommandError) Unwrap() error { return e.Err }
