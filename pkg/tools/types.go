package tools

import (
	"context"
	"errors"
	"time"

	"github.com/isitobservable/kube-health-mcp/pkg/cluster"
	"github.com/isitobservable/kube-health-mcp/pkg/config"
	"github.com/isitobservable/kube-health-mcp/pkg/guard"
	"github.com/isitobservable/kube-health-mcp/pkg/health"
	"github.com/isitobservable/kube-health-mcp/pkg/types"
)

type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error)
}

type StandardResponse struct {
	Cluster   string      `json:"cluster"`
	Timestamp string      `json:"timestamp"`
	Tool      string      `json:"tool"`
	Data      interface{} `json:"data"`
}

// ProviderSource resolves the cluster provider for a kube context.
type ProviderSource interface {
	For(kubeContext string) (cluster.Provider, error)
}

type BaseTool struct {
	Cfg       *config.Config
	Providers ProviderSource
	Gate      *guard.Gate
}

// provider resolves the provider for the request's kube_context argument.
func (b *BaseTool) provider(toolName string, args map[string]interface{}) (cluster.Provider, string, error) {
	kubeContext := getStringArg(args, "kube_context", "")
	p, err := b.Providers.For(kubeContext)
	if err != nil {
		return nil, kubeContext, (&types.MCPError{
			Code:    types.ErrCodeUpstreamError,
			Tool:    toolName,
			Message: "failed to connect to cluster",
			Detail:  err.Error(),
		}).WithCause(err)
	}
	return p, kubeContext, nil
}

// withTimeout bounds a tool call by the configured tool timeout.
func (b *BaseTool) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.Cfg.ToolTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.Cfg.ToolTimeout)
}

// gated runs a kubectl intent through the safety gate.
func (b *BaseTool) gated(ctx context.Context, p cluster.Provider, kubeContext string, args map[string]interface{}, intent guard.Intent) (string, error) {
	return b.Gate.Run(ctx, guard.Request{
		Requester:   getStringArg(args, "requester", ""),
		KubeContext: kubeContext,
		Intent:      intent,
	}, p.Execute)
}

func getStringArg(args map[string]interface{}, key string, defaultVal string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultVal
}

func getIntArg(args map[string]interface{}, key string, defaultVal int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return defaultVal
}

func getStringSliceArg(args map[string]interface{}, key string) []string {
	var out []string
	switch v := args[key].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	}
	return out
}

// requirePod returns the pod_name and namespace arguments, both of which are mandatory.
func requirePod(toolName string, args map[string]interface{}) (string, string, error) {
	name := getStringArg(args, "pod_name", "")
	if name == "" {
		return "", "", &types.MCPError{
			Code:    types.ErrCodeInvalidInput,
			Tool:    toolName,
			Message: "Pod name is required, Please mention pod name in the request.",
		}
	}
	namespace := getStringArg(args, "namespace", "")
	if namespace == "" {
		return "", "", &types.MCPError{
			Code:    types.ErrCodeInvalidInput,
			Tool:    toolName,
			Message: "Namespace is required, Please mention namespace for the pod in the request.",
		}
	}
	return name, namespace, nil
}

// toolError maps provider, gate and classifier failures to agent-facing MCPErrors.
func toolError(toolName string, err error) error {
	var mcpErr *types.MCPError
	if errors.As(err, &mcpErr) {
		return err
	}
	e := &types.MCPError{Tool: toolName, Code: types.ErrCodeUpstreamError, Message: err.Error()}
	switch {
	case errors.Is(err, guard.ErrPolicyDenied):
		e.Code = types.ErrCodePolicyDenied
		e.Message = "This action is prohibited for security reasons. The attempt has been logged."
		e.Detail = err.Error()
	case errors.Is(err, cluster.ErrMetricsUnavailable):
		e.Code = types.ErrCodeUpstreamUnavailable
		e.Message = "node metrics are not available"
		e.Detail = "Please ensure the Kubernetes Metrics Server is installed and running in your cluster."
	case errors.Is(err, health.ErrInsufficientData):
		e.Code = types.ErrCodeInsufficientData
		e.Message = "no usable node capacity data was returned by the cluster"
	case errors.Is(err, context.DeadlineExceeded):
		e.Message = "timed out waiting for the cluster"
		e.Detail = err.Error()
	}
	return e.WithCause(err)
}

func contextLabel(kubeContext string) string {
	if kubeContext == "" {
		return "default"
	}
	return kubeContext
}

func NewResponse(cfg *config.Config, toolName string, data interface{}) *StandardResponse {
	return &StandardResponse{
		Cluster:   cfg.ClusterName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Tool:      toolName,
		Data:      data,
	}
}

// NewToolResultResponse creates a StandardResponse wrapping a ToolResult with auto-populated metadata.
func NewToolResultResponse(cfg *config.Config, toolName, kubeContext, namespace, message string, findings []types.DiagnosticFinding, details interface{}) *StandardResponse {
	if findings == nil {
		findings = []types.DiagnosticFinding{}
	}
	return NewResponse(cfg, toolName, &types.ToolResult{
		Message:  message,
		Findings: findings,
		Details:  details,
		Metadata: types.ClusterMetadata{
			ClusterName: cfg.ClusterName,
			KubeContext: contextLabel(kubeContext),
			Timestamp:   time.Now().UTC(),
			Namespace:   namespace,
		},
	})
}

// commonProperties are accepted by every tool.
func commonProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"kube_context": map[string]interface{}{"type": "string", "description": "kubectl context to run against (default: current context)"},
		"requester":    map[string]interface{}{"type": "string", "description": "Identity of the user on whose behalf the tool runs, recorded in the audit log"},
		"detail":       map[string]interface{}{"type": "boolean", "description": "Include finding details and suggestions (default false)"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": commonProperties(props),
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
