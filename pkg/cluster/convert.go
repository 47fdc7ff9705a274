package cluster

import (
	"strconv"

	corev1 "k8s.io/api/core/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/isitobservable/kube-health-mcp/pkg/health"
)

func podRecord(pod *corev1.Pod) health.PodStatusRecord {
	rec := health.PodStatusRecord{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Phase:     string(pod.Status.Phase),
	}
	for _, ref := range pod.OwnerReferences {
		rec.OwnerReferences = append(rec.OwnerReferences, health.OwnerReference{Kind: ref.Kind})
	}
	for _, cs := range pod.Status.ContainerStatuses {
		rec.ContainerStatuses = append(rec.ContainerStatuses, containerRecord(cs))
	}
	return rec
}

func containerRecord(cs corev1.ContainerStatus) health.ContainerStatusRecord {
	rec := health.ContainerStatusRecord{
		Name:         cs.Name,
		Ready:        cs.Ready,
		RestartCount: cs.RestartCount,
	}
	switch {
	case cs.State.Waiting != nil:
		rec.State.Waiting = &health.WaitingState{Reason: cs.State.Waiting.Reason}
	case cs.State.Terminated != nil:
		rec.State.Terminated = &health.TerminatedState{
			Reason:   cs.State.Terminated.Reason,
			ExitCode: cs.State.Terminated.ExitCode,
		}
	case cs.State.Running != nil:
		rec.State.Running = &health.RunningState{}
	}
	return rec
}

func nodeRecord(node *corev1.Node) health.NodeStatusRecord {
	rec := health.NodeStatusRecord{Name: node.Name}
	for _, c := range node.Status.Conditions {
		rec.Conditions = append(rec.Conditions, health.NodeCondition{
			Type:   string(c.Type),
			Status: string(c.Status),
			Reason: c.Reason,
		})
	}
	if mem, ok := node.Status.Capacity[corev1.ResourceMemory]; ok {
		rec.MemoryCapacity = strconv.FormatInt(mem.Value(), 10)
	}
	return rec
}

func nodeMetricRecord(m *metricsv1beta1.NodeMetrics) (health.NodeMetricRecord, bool) {
	mem, ok := m.Usage[corev1.ResourceMemory]
	if !ok {
		return health.NodeMetricRecord{}, false
	}
	return health.NodeMetricRecord{
		Name:        m.Name,
		MemoryUsage: health.Quantity{Value: mem.Value(), Unit: health.UnitBytes},
	}, true
}
