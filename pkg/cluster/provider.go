package cluster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/isitobservable/kube-health-mcp/pkg/health"
	"github.com/isitobservable/kube-health-mcp/pkg/k8s"
)

// ErrMetricsUnavailable means the cluster serves no node metrics (metrics-server missing).
var ErrMetricsUnavailable = errors.New("node metrics are not available")

// Metrics sources for NodeMetrics.
const (
	MetricsSourceAPI     = "api"
	MetricsSourceKubectl = "kubectl"
)

const maxLogBytes = 102400 // 100KB

// Provider supplies cluster state snapshots to the health classifiers.
type Provider interface {
	ListPods(ctx context.Context, namespace string) ([]health.PodStatusRecord, error)
	ListNodes(ctx context.Context) ([]health.NodeStatusRecord, error)
	NodeMetrics(ctx context.Context) ([]health.NodeMetricRecord, error)
	DescribePod(ctx context.Context, name, namespace string) (string, error)
	PodLogs(ctx context.Context, name, namespace string, tailLines int64) (string, error)
	// Execute runs a kubectl command as given. Callers must pass it through guard.Gate.
	Execute(ctx context.Context, args []string) (string, error)
}

// KubeProvider reads from the API server with client-go and falls back to kubectl for
// the text views that only kubectl renders.
type KubeProvider struct {
	clients       *k8s.Clients
	kubectl       *Kubectl
	metricsSource string
}

// NewKubeProvider creates a provider over clients and kubectl.
func NewKubeProvider(clients *k8s.Clients, kubectl *Kubectl, metricsSource string) *KubeProvider {
	if metricsSource == "" {
		metricsSource = MetricsSourceAPI
	}
	return &KubeProvider{clients: clients, kubectl: kubectl, metricsSource: metricsSource}
}

// ListPods lists pods in namespace; an empty namespace means all namespaces.
func (p *KubeProvider) ListPods(ctx context.Context, namespace string) ([]health.PodStatusRecord, error) {
	pods, err := p.clients.Clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in %q: %w", namespace, err)
	}
	records := make([]health.PodStatusRecord, 0, len(pods.Items))
	for i := range pods.Items {
		records = append(records, podRecord(&pods.Items[i]))
	}
	return records, nil
}

func (p *KubeProvider) ListNodes(ctx context.Context) ([]health.NodeStatusRecord, error) {
	nodes, err := p.clients.Clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	records := make([]health.NodeStatusRecord, 0, len(nodes.Items))
	for i := range nodes.Items {
		records = append(records, nodeRecord(&nodes.Items[i]))
	}
	return records, nil
}

// NodeMetrics returns current node memory usage from metrics.k8s.io, or from
// `kubectl top nodes` when the provider is configured for kubectl.
func (p *KubeProvider) NodeMetrics(ctx context.Context) ([]health.NodeMetricRecord, error) {
	if p.metricsSource == MetricsSourceKubectl {
		return p.topNodes(ctx)
	}
	list, err := p.clients.Metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) || apierrors.IsServiceUnavailable(err) {
			return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
		}
		return nil, fmt.Errorf("failed to list node metrics: %w", err)
	}
	records := make([]health.NodeMetricRecord, 0, len(list.Items))
	for i := range list.Items {
		if rec, ok := nodeMetricRecord(&list.Items[i]); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (p *KubeProvider) topNodes(ctx context.Context) ([]health.NodeMetricRecord, error) {
	out, err := p.kubectl.Run(ctx, []string{"top", "nodes", "--no-headers"})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "metrics") {
			return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
		}
		return nil, err
	}
	return health.ParseMetricLines(out), nil
}

// DescribePod returns `kubectl describe pod` output.
func (p *KubeProvider) DescribePod(ctx context.Context, name, namespace string) (string, error) {
	return p.kubectl.Run(ctx, []string{"describe", "pod", name, "-n", namespace})
}

// PodLogs returns the last tailLines lines of every container in the pod, capped at 100KB.
func (p *KubeProvider) PodLogs(ctx context.Context, name, namespace string, tailLines int64) (string, error) {
	pod, err := p.clients.Clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get pod %s/%s: %w", namespace, name, err)
	}

	var out bytes.Buffer
	for _, c := range pod.Spec.Containers {
		data, err := p.containerLogs(ctx, name, namespace, c.Name, tailLines)
		if err != nil {
			return "", err
		}
		if out.Len() > 0 && len(data) > 0 && !bytes.HasSuffix(out.Bytes(), []byte("\n")) {
			out.WriteByte('\n')
		}
		out.Write(data)
		if out.Len() >= maxLogBytes {
			out.Truncate(maxLogBytes)
			break
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func (p *KubeProvider) containerLogs(ctx context.Context, name, namespace, container string, tailLines int64) ([]byte, error) {
	opts := &corev1.PodLogOptions{Container: container}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}
	stream, err := p.clients.Clientset.CoreV1().Pods(namespace).GetLogs(name, opts).Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for %s/%s/%s: %w", namespace, name, container, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(io.LimitReader(stream, maxLogBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read log stream: %w", err)
	}
	return data, nil
}

// Execute runs kubectl with args against the provider's context.
func (p *KubeProvider) Execute(ctx context.Context, args []string) (string, error) {
	return p.kubectl.Run(ctx, args)
}
