package tools

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/isitobservable/kube-health-mcp/pkg/health"
	"github.com/isitobservable/kube-health-mcp/pkg/types"
)

// --- get_unhealthy_nodes ---

type GetUnhealthyNodesTool struct{ BaseTool }

func (t *GetUnhealthyNodesTool) Name() string { return "get_unhealthy_nodes" }
func (t *GetUnhealthyNodesTool) Description() string {
	return "Find nodes that are not Ready or report an active pressure condition (MemoryPressure, DiskPressure, PIDPressure, NetworkUnavailable)"
}
func (t *GetUnhealthyNodesTool) InputSchema() map[string]interface{} {
	return objectSchema(nil)
}

func (t *GetUnhealthyNodesTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	nodes, err := p.ListNodes(ctx)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}
	verdicts := health.ClassifyNodes(nodes)

	findings := make([]types.DiagnosticFinding, 0, len(verdicts))
	lines := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		findings = append(findings, types.DiagnosticFinding{
			Severity: types.SeverityCritical,
			Category: types.CategoryNodes,
			Resource: &types.ResourceRef{Kind: "Node", Name: v.Name},
			Summary:  fmt.Sprintf("%s: %s", v.Name, v.Reason),
		})
		lines = append(lines, fmt.Sprintf("- *%s*: %s", v.Name, v.Reason))
	}

	label := contextLabel(kubeContext)
	msg := fmt.Sprintf("All nodes are healthy in context '%s'.", label)
	if len(verdicts) > 0 {
		msg = fmt.Sprintf("Found %d unhealthy node(s) in context '%s':\n%s", len(verdicts), label, strings.Join(lines, "\n"))
	}
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, "", msg, findings, verdicts), nil
}

// --- get_nodes_by_memory ---

type GetNodesByMemoryTool struct{ BaseTool }

func (t *GetNodesByMemoryTool) Name() string { return "get_nodes_by_memory" }
func (t *GetNodesByMemoryTool) Description() string {
	return "Find nodes whose memory usage is above a percentage of their capacity (requires metrics-server)"
}
func (t *GetNodesByMemoryTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"memory_threshold_percent": map[string]interface{}{
			"type":        "number",
			"description": "Usage percentage a node must exceed to be reported (default 80)",
		},
	})
}

func (t *GetNodesByMemoryTool) Run(ctx context.Context, args map[string]interface{}) (*StandardResponse, error) {
	threshold := getIntArg(args, "memory_threshold_percent", t.Cfg.MemoryThresholdPercent)
	if threshold < 0 || threshold > 100 {
		return nil, &types.MCPError{
			Code:    types.ErrCodeInvalidInput,
			Tool:    t.Name(),
			Message: "memory_threshold_percent must be between 0 and 100",
			Detail:  fmt.Sprintf("got %d", threshold),
		}
	}
	p, kubeContext, err := t.provider(t.Name(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	var (
		nodes   []health.NodeStatusRecord
		metrics []health.NodeMetricRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		metrics, err = p.NodeMetrics(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		nodes, err = p.ListNodes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, toolError(t.Name(), err)
	}

	verdicts, err := health.EvaluateMemory(health.MemoryCapacities(nodes), metrics, threshold)
	if err != nil {
		return nil, toolError(t.Name(), err)
	}

	findings := make([]types.DiagnosticFinding, 0, len(verdicts))
	lines := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		findings = append(findings, types.DiagnosticFinding{
			Severity: types.SeverityWarning,
			Category: types.CategoryMemory,
			Resource: &types.ResourceRef{Kind: "Node", Name: v.Name},
			Summary:  fmt.Sprintf("%s: %s", v.Name, v.Reason),
		})
		lines = append(lines, fmt.Sprintf("- *%s*: %s", v.Name, v.Reason))
	}

	msg := fmt.Sprintf("No nodes found with memory usage above %d%% in context '%s'.", threshold, contextLabel(kubeContext))
	if len(verdicts) > 0 {
		msg = fmt.Sprintf("Found %d node(s) with memory usage above %d%%:\n%s", len(verdicts), threshold, strings.Join(lines, "\n"))
	}
	return NewToolResultResponse(t.Cfg, t.Name(), kubeContext, "", msg, findings, verdicts), nil
}
