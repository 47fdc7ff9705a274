package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/isitobservable/kube-health-mcp/pkg/audit"
)

// ErrPolicyDenied is returned when the filter rejects an intent.
var ErrPolicyDenied = errors.New("command is prohibited by the safety policy")

// ExecFunc runs an approved command and returns its output.
type ExecFunc func(ctx context.Context, tokens []string) (string, error)

// Request identifies who is running what, and where.
type Request struct {
	Requester   string
	KubeContext string
	Intent      Intent
}

// Gate evaluates every intent before dispatch and audit-logs the outcome.
type Gate struct {
	filter *Filter
	audit  audit.Logger
}

// NewGate creates a gate writing to the given audit logger.
func NewGate(filter *Filter, auditLogger audit.Logger) *Gate {
	return &Gate{filter: filter, audit: auditLogger}
}

// Run executes req through exec only when the filter allows it. A denial is final:
// exec is never called and the returned error wraps ErrPolicyDenied.
func (g *Gate) Run(ctx context.Context, req Request, exec ExecFunc) (string, error) {
	attempted := req.Intent.String()
	decision := g.filter.Evaluate(req.Intent)
	if !decision.Allowed {
		slog.Warn("guard: BLOCKED destructive command",
			"requester", req.Requester,
			"command", attempted,
			"keyword", decision.Keyword,
		)
		g.record(ctx, audit.NewEvent(audit.EventCommandDenied, audit.ResultDenied).
			WithRequester(req.Requester).
			WithKubeContext(req.KubeContext).
			WithCommand(attempted).
			WithKeyword(decision.Keyword))
		return "", fmt.Errorf("%w: %q", ErrPolicyDenied, decision.Keyword)
	}

	start := time.Now()
	out, err := exec(ctx, req.Intent.Tokens())

	event := audit.NewEvent(audit.EventCommandExecuted, audit.ResultSuccess)
	if err != nil {
		event = audit.NewEvent(audit.EventCommandFailed, audit.ResultFailure).WithError(err)
	}
	g.record(ctx, event.
		WithRequester(req.Requester).
		WithKubeContext(req.KubeContext).
		WithCommand(attempted).
		WithDuration(time.Since(start)))

	return out, err
}

func (g *Gate) record(ctx context.Context, event *audit.Event) {
	if g.audit == nil {
		return
	}
	if err := g.audit.Log(ctx, event); err != nil {
		slog.Error("guard: failed to write audit event", "event", event.EventType, "error", err)
	}
}
