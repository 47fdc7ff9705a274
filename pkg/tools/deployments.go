package tools

import (
	"context"
	"fmt"

	"github.com/isitobservable/kube-health-mcp/pkg/guard"
	"github.com/isitobservable/kube-health-mcp/pkg/types"
)

// --- get_deployments ---

type GetDeploymentsTool struct{ BaseTool }

func (t *GetDeploymentsTool) Name() string { return "get_deployments" }
func (t *GetDeploymentsTool) Description() string {
	return "List deployments in a namespace with their ready and available replicas"
}
func (t *GetDeploymentsTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{"namespace": namespaceProp})
}

func (t *GetDeploymentsTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	ns := getStringArg(args, "namespace", t.Cfg.Namespace)
	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	out, err := t.gated(ctx, p, kubeContext, args, guard.Intent{Command: "get deployments", Targets: []string{"-n", ns}})
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	msg := fmt.Sprintf("Deployments in namespace %s (context: %s):", ns, contextLabel(kubeContext))
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, ns, msg, nil, out), nil
}

// --- restart_deployment ---

type RestartDeploymentTool struct{ BaseTool }

func (t *RestartDeploymentTool) Name() string { return "restart_deployment" }
func (t *RestartDeploymentTool) Description() string {
	return "Trigger a rolling restart of a deployment (kubectl rollout restart)"
}
func (t *RestartDeploymentTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"deployment_name": map[string]interface{}{"type": "string", "description": "Deployment name"},
		"namespace":       namespaceProp,
	}, "deployment_name")
}

func (t *RestartDeploymentTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	name := getStringArg(args, "deployment_name", "")
	if name == "" {
		return nil, &types.MCPError{Code: types.ErrCodeInvalidInput, Tool: t.Name(), Message: "Deployment name is required"}
	}
	ns := getStringArg(args, "namespace", t.Cfg.Namespace)
	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	out, err := t.gated(ctx, p, kubeContext, args, guard.Intent{
		Command: "rollout restart deployment",
		Targets: []string{name, "-n", ns},
	})
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	msg := fmt.Sprintf("Deployment %s in namespace %s (context: %s) restarted", name, ns, contextLabel(kubeContext))
	findings := []types.DiagnosticFinding{{
		Severity: types.SeverityInfo,
		Category: types.CategoryCommands,
		Resource: &types.ResourceRef{Kind: "Deployment", Namespace: ns, Name: name, APIVersion: "apps/v1"},
		Summary:  msg,
	}}
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, ns, msg, findings, out), nil
}
