package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/isitobservable/kube-health-mcp/pkg/guard"
	"github.com/isitobservable/kube-health-mcp/pkg/health"
	"github.com/isitobservable/kube-health-mcp/pkg/types"
)

var namespaceProp = map[string]interface{}{"type": "string", "description": "Kubernetes namespace"}

var podProps = map[string]interface{}{
	"pod_name":  map[string]interface{}{"type": "string", "description": "Pod name"},
	"namespace": namespaceProp,
}

// --- get_pods ---

type GetPodsTool struct{ BaseTool }

func (t *GetPodsTool) Name() string { return "get_pods" }
func (t *GetPodsTool) Description() string {
	return "List pods in a namespace with node placement and IPs (kubectl get pods -o wide)"
}
func (t *GetPodsTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{"namespace": namespaceProp})
}

func (t *GetPodsTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	ns := getStringArg(args, "namespace", t.Cfg.Namespace)
	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	out, err := t.gated(ctx, p, kubeContext, args, guard.Intent{Command: "get pods", Args: []string{"-o", "wide"}, Targets: []string{"-n", ns}})
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	msg := fmt.Sprintf("Pods in namespace %s (context: %s):", ns, contextLabel(kubeContext))
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, ns, msg, nil, out), nil
}

// --- get_failing_pods ---

type GetFailingPodsTool struct{ BaseTool }

type failingPodsDetails struct {
	Count int              `json:"problematic_pods_count"`
	Pods  []health.Verdict `json:"pods"`
}

func (t *GetFailingPodsTool) Name() string { return "get_failing_pods" }
func (t *GetFailingPodsTool) Description() string {
	return "Find problematic pods in a namespace: failed or unknown phase, crash-looping, image pull errors, abnormal terminations, unready containers and failed Job pods"
}
func (t *GetFailingPodsTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{"namespace": namespaceProp})
}

func (t *GetFailingPodsTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	ns := getStringArg(args, "namespace", t.Cfg.Namespace)
	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	pods, err := p.ListPods(ctx, ns)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	verdicts := health.ClassifyPods(pods)

	findings := make([]types.DiagnosticFinding, 0, len(verdicts))
	lines := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		findings = append(findings, types.DiagnosticFinding{
			Severity:   types.SeverityCritical,
			Category:   types.CategoryPods,
			Resource:   &types.ResourceRef{Kind: "Pod", Namespace: v.Namespace, Name: v.Name},
			Summary:    fmt.Sprintf("%s/%s (Phase: %s): %s", v.Namespace, v.Name, v.Phase, v.Reason),
			Detail:     v.Reason,
			Suggestion: fmt.Sprintf("Run troubleshoot_pod with pod_name=%s namespace=%s", v.Name, v.Namespace),
		})
		lines = append(lines, fmt.Sprintf("• *%s* (Phase: %s): %s", v.Name, v.Phase, v.Reason))
	}

	var msg string
	if len(verdicts) == 0 {
		msg = fmt.Sprintf("No problematic pods found in namespace '%s' (context: %s).", ns, contextLabel(kubeContext))
	} else {
		msg = fmt.Sprintf("Found %d problematic pods in namespace '%s' (context: %s):\n%s",
			len(verdicts), ns, contextLabel(kubeContext), strings.Join(lines, "\n"))
	}
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, ns, msg, findings,
		failingPodsDetails{Count: len(verdicts), Pods: verdicts}), nil
}

// --- describe_pod ---

type DescribePodTool struct{ BaseTool }

func (t *DescribePodTool) Name() string { return "describe_pod" }
func (t *DescribePodTool) Description() string {
	return "Describe a pod: spec, status, conditions and recent events"
}
func (t *DescribePodTool) InputSchema() map[string]interface{} {
	return objectSchema(podProps, "pod_name", "namespace")
}

func (t *DescribePodTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	name, ns, err := requirePod(t.Name(), args)
	if err != nil {
		return nil, err
	}
	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	out, err := p.DescribePod(ctx, name, ns)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	msg := fmt.Sprintf("Details for pod %s in namespace %s (context: %s):", name, ns, contextLabel(kubeContext))
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, ns, msg, nil, out), nil
}

// --- get_pod_logs ---

type GetPodLogsTool struct{ BaseTool }

func (t *GetPodLogsTool) Name() string { return "get_pod_logs" }
func (t *GetPodLogsTool) Description() string {
	return "Get the most recent log lines of every container in a pod"
}
func (t *GetPodLogsTool) InputSchema() map[string]interface{} {
	props := map[string]interface{}{
		"tail": map[string]interface{}{"type": "number", "description": "Number of lines from the end of each container's log"},
	}
	for k, v := range podProps {
		props[k] = v
	}
	return objectSchema(props, "pod_name", "namespace")
}

func (t *GetPodLogsTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	name, ns, err := requirePod(t.Name(), args)
	if err != nil {
		return nil, err
	}
	tail := int64(getIntArg(args, "tail", int(t.Cfg.LogTailLines)))
	if tail < 1 {
		return nil, &types.MCPError{Code: types.ErrCodeInvalidInput, Tool: t.Name(), Message: "tail must be a positive number of lines"}
	}
	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	logs, err := p.PodLogs(ctx, name, ns, tail)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	msg := fmt.Sprintf("Logs for pod %s in namespace %s (context: %s, last %d lines):", name, ns, contextLabel(kubeContext), tail)
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, ns, msg, nil, logs), nil
}

// --- troubleshoot_pod ---

type TroubleshootPodTool struct{ BaseTool }

func (t *TroubleshootPodTool) Name() string { return "troubleshoot_pod" }
func (t *TroubleshootPodTool) Description() string {
	return "Collect a pod's description and recent logs into a single troubleshooting report"
}
func (t *TroubleshootPodTool) InputSchema() map[string]interface{} {
	return objectSchema(podProps, "pod_name", "namespace")
}

func (t *TroubleshootPodTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	name, ns, err := requirePod(t.Name(), args)
	if err != nil {
		return nil, err
	}
	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	report, err := health.Troubleshoot(ctx, p, name, ns, t.Cfg.LogTailLines)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	msg := fmt.Sprintf("Collected troubleshooting data for pod '%s'.", name)
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, ns, msg, nil, report), nil
}
