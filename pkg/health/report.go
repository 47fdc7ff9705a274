package health

import (
	"context"
	"fmt"
	"strings"
)

// Collector supplies the raw text the troubleshooting report is built from.
type Collector interface {
	DescribePod(ctx context.Context, name, namespace string) (string, error)
	PodLogs(ctx context.Context, name, namespace string, tailLines int64) (string, error)
}

// Troubleshoot collects the description and recent logs of a pod and merges them into a
// single report. A failure of either collector fails the whole report.
func Troubleshoot(ctx context.Context, c Collector, name, namespace string, tailLines int64) (string, error) {
	description, err := c.DescribePod(ctx, name, namespace)
	if err != nil {
		return "", fmt.Errorf("describing pod %s/%s: %w", namespace, name, err)
	}
	logs, err := c.PodLogs(ctx, name, namespace, tailLines)
	if err != nil {
		return "", fmt.Errorf("fetching logs for pod %s/%s: %w", namespace, name, err)
	}
	return BuildReport(name, description, logs, tailLines), nil
}

// BuildReport formats a pod description and its logs as one markdown report.
func BuildReport(podName, description, logs string, tailLines int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Pod Description for '%s' ###\n---\n%s\n\n", podName, strings.TrimSpace(description))
	fmt.Fprintf(&b, "### Recent Logs for '%s' (last %d lines) ###\n---\n%s", podName, tailLines, strings.TrimSpace(logs))
	return strings.TrimSpace(b.String())
}
