package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/isitobservable/kube-health-mcp/pkg/guard"
	"github.com/isitobservable/kube-health-mcp/pkg/types"
)

// --- execute_kubectl ---

type ExecuteKubectlTool struct{ BaseTool }

func (t *ExecuteKubectlTool) Name() string { return "execute_kubectl" }
func (t *ExecuteKubectlTool) Description() string {
	return "Run a read-only kubectl command. Commands containing delete, drain, cordon, uncordon, label, annotate, taint, apply, patch, replace, edit or set are refused and audit-logged"
}
func (t *ExecuteKubectlTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"command": map[string]interface{}{"type": "string", "description": "kubectl subcommand without the kubectl prefix, e.g. 'get svc'"},
		"args": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Additional arguments",
		},
		"namespace": map[string]interface{}{"type": "string", "description": "Namespace appended as -n unless the command already sets one"},
	}, "command")
}

func (t *ExecuteKubectlTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	command := strings.TrimSpace(getStringArg(args, "command", ""))
	if command == "" {
		return nil, &types.MCPError{Code: types.ErrCodeInvalidInput, Tool: t.Name(), Message: "Command is required"}
	}
	cmdArgs := getStringSliceArg(args, "args")
	ns := getStringArg(args, "namespace", "")
	if ns != "" && !hasNamespaceFlag(append(strings.Fields(command), cmdArgs...)) {
		cmdArgs = append(cmdArgs, "-n", ns)
	}

	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	out, err := t.gated(ctx, p, kubeContext, args, guard.Intent{Command: command, Args: cmdArgs})
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	msg := fmt.Sprintf("Kubectl command executed successfully (context: %s)", contextLabel(kubeContext))
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, ns, msg, nil, out), nil
}

func hasNamespaceFlag(tokens []string) bool {
	for _, tok := range tokens {
		switch {
		case tok == "-n", tok == "--namespace", tok == "-A", tok == "--all-namespaces":
			return true
		case strings.HasPrefix(tok, "--namespace="), strings.HasPrefix(tok, "-n="):
			return true
		}
	}
	return false
}
