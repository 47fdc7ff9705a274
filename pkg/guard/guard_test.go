package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/isitobservable/kube-health-mcp/pkg/audit"
)

func TestFilter_Evaluate(t *testing.T) {
	tests := []struct {
		name        string
		intent      Intent
		wantAllowed bool
		wantKeyword string
	}{
		{name: "apply file", intent: Intent{Command: "apply -f x.yaml"}, wantAllowed: false, wantKeyword: "apply"},
		{name: "keyword embedded in a token", intent: Intent{Command: "kubectl-apply-tool status"}, wantAllowed: true},
		{name: "get pods", intent: Intent{Command: "get pods"}, wantAllowed: true},
		{name: "uppercase verb", intent: Intent{Command: "DELETE pod web-0"}, wantAllowed: false, wantKeyword: "delete"},
		{name: "keyword in args", intent: Intent{Command: "get", Args: []string{"pods", "set"}}, wantAllowed: false, wantKeyword: "set"},
		{name: "keyword at end", intent: Intent{Command: "rollout", Args: []string{"history", "drain"}}, wantAllowed: false, wantKeyword: "drain"},
		{name: "resource named after keyword", intent: Intent{Command: "get job patch-runner"}, wantAllowed: true},
		{name: "tab separated", intent: Intent{Command: "get\tpods\tcordon"}, wantAllowed: false, wantKeyword: "cordon"},
		{name: "rollout restart", intent: Intent{Command: "rollout restart deployment web"}, wantAllowed: true},
		{name: "empty", intent: Intent{}, wantAllowed: true},
		{name: "targets not matched", intent: Intent{Command: "rollout restart deployment", Targets: []string{"edit", "-n", "set"}}, wantAllowed: true},
		{name: "args still matched with targets", intent: Intent{Command: "get", Args: []string{"label"}, Targets: []string{"-n", "web"}}, wantAllowed: false, wantKeyword: "label"},
	}

	f := NewFilter()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := f.Evaluate(tc.intent)
			assert.Equal(t, tc.wantAllowed, d.Allowed)
			assert.Equal(t, tc.wantKeyword, d.Keyword)
		})
	}
}

func TestFilter_EveryBlockedKeywordDenied(t *testing.T) {
	f := NewFilter()
	for _, k := range BlockedKeywords() {
		assert.False(t, f.Evaluate(Intent{Command: k + " something"}).Allowed, k)
		assert.False(t, f.Evaluate(Intent{Command: "x " + k}).Allowed, k)
		assert.True(t, f.Evaluate(Intent{Command: "x " + k + "-thing"}).Allowed, k)
	}
}

func TestIntent_Tokens(t *testing.T) {
	i := Intent{Command: "get  pods -o", Args: []string{"wide", "-n", "kube-system"}}
	assert.Equal(t, []string{"get", "pods", "-o", "wide", "-n", "kube-system"}, i.Tokens())

	i = Intent{Command: "get pods", Args: []string{"-o", "wide"}, Targets: []string{"-n", "Web"}}
	assert.Equal(t, []string{"get", "pods", "-o", "wide", "-n", "Web"}, i.Tokens())
	assert.Equal(t, "get pods -o wide -n Web", i.String())
}

func TestGate_DeniedAuditKeepsAttemptedCase(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	gate := NewGate(NewFilter(), audit.NewLoggerFromCore(core))

	_, err := gate.Run(context.Background(), Request{
		Requester: "U7",
		Intent:    Intent{Command: "Delete", Args: []string{"Pod", "Web-0"}},
	}, nil)
	require.ErrorIs(t, err, ErrPolicyDenied)

	require.Len(t, logs.All(), 1)
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "Delete Pod Web-0", fields["command"])
	assert.Equal(t, "delete", fields["keyword"])
}

func TestGate_DeniedNeverExecutes(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	gate := NewGate(NewFilter(), audit.NewLoggerFromCore(core))

	called := false
	out, err := gate.Run(context.Background(), Request{
		Requester:   "U42",
		KubeContext: "prod",
		Intent:      Intent{Command: "delete", Args: []string{"pod", "web-0"}},
	}, func(ctx context.Context, tokens []string) (string, error) {
		called = true
		return "", nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPolicyDenied))
	assert.False(t, called)
	assert.Empty(t, out)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "command.denied", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "U42", fields["requester"])
	assert.Equal(t, "delete pod web-0", fields["command"])
	assert.Equal(t, "prod", fields["kube_context"])
}

func TestGate_AllowedExecutesAndAudits(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	gate := NewGate(NewFilter(), audit.NewLoggerFromCore(core))

	var got []string
	out, err := gate.Run(context.Background(), Request{Requester: "U1", Intent: Intent{Command: "get pods", Args: []string{"-A"}}},
		func(ctx context.Context, tokens []string) (string, error) {
			got = tokens
			return "NAME READY", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "NAME READY", out)
	assert.Equal(t, []string{"get", "pods", "-A"}, got)
	require.Len(t, logs.All(), 1)
	assert.Equal(t, "command.executed", logs.All()[0].Message)
}

func TestGate_ExecErrorIsAuditedAndReturned(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	gate := NewGate(NewFilter(), audit.NewLoggerFromCore(core))
	boom := errors.New("exit status 1")

	_, err := gate.Run(context.Background(), Request{Intent: Intent{Command: "get nothing"}},
		func(ctx context.Context, tokens []string) (string, error) { return "", boom })

	assert.ErrorIs(t, err, boom)
	require.Len(t, logs.All(), 1)
	assert.Equal(t, "command.failed", logs.All()[0].Message)
	assert.Equal(t, "exit status 1", logs.All()[0].ContextMap()["error"])
}

func TestGate_NilAuditLogger(t *testing.T) {
	gate := NewGate(NewFilter(), nil)
	_, err := gate.Run(context.Background(), Request{Intent: Intent{Command: "edit deploy x"}}, nil)
	assert.ErrorIs(t, err, ErrPolicyDenied)
}
