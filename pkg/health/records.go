package health

// Pod phases. Completed is not a real PodPhase but some tooling reports it for finished Job pods.
const (
	PhasePending   = "Pending"
	PhaseRunning   = "Running"
	PhaseSucceeded = "Succeeded"
	PhaseFailed    = "Failed"
	PhaseUnknown   = "Unknown"
	PhaseCompleted = "Completed"
)

// OwnerReference is the back-link from a pod to its controller.
type OwnerReference struct {
	Kind string `json:"kind"`
}

// WaitingState describes a container that has not started yet.
type WaitingState struct {
	Reason string `json:"reason,omitempty"`
}

// TerminatedState describes a container that has exited.
type TerminatedState struct {
	Reason   string `json:"reason,omitempty"`
	ExitCode int32  `json:"exitCode"`
}

// RunningState describes a running container.
type RunningState struct{}

// ContainerState holds exactly one of Waiting, Terminated or Running.
// A zero ContainerState means the runtime reported nothing yet.
type ContainerState struct {
	Waiting    *WaitingState    `json:"waiting,omitempty"`
	Terminated *TerminatedState `json:"terminated,omitempty"`
	Running    *RunningState    `json:"running,omitempty"`
}

// ContainerStatusRecord is the per-container slice of a pod status snapshot.
type ContainerStatusRecord struct {
	Name         string         `json:"name"`
	Ready        bool           `json:"ready"`
	RestartCount int32          `json:"restartCount"`
	State        ContainerState `json:"state"`
}

// PodStatusRecord is a pod status snapshot as supplied by a cluster state provider.
type PodStatusRecord struct {
	Name              string                  `json:"name"`
	Namespace         string                  `json:"namespace"`
	Phase             string                  `json:"phase"`
	OwnerReferences   []OwnerReference        `json:"ownerReferences,omitempty"`
	ContainerStatuses []ContainerStatusRecord `json:"containerStatuses,omitempty"`
}

// NodeCondition is a named health signal reported by a node.
type NodeCondition struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// NodeStatusRecord is a node status snapshot. MemoryCapacity is the raw quantity string
// from the node's status.capacity.memory.
type NodeStatusRecord struct {
	Name           string          `json:"name"`
	Conditions     []NodeCondition `json:"conditions"`
	MemoryCapacity string          `json:"memoryCapacity,omitempty"`
}

// NodeMetricRecord is the live memory usage of a single node.
type NodeMetricRecord struct {
	Name        string   `json:"name"`
	MemoryUsage Quantity `json:"memoryUsage"`
}

// Verdict is the decision record produced by the classifiers.
type Verdict struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace,omitempty"`
	Phase       string `json:"phase,omitempty"`
	Problematic bool   `json:"problematic"`
	Reason      string `json:"reason"`

	// Set by EvaluateMemory only.
	UsagePercent float64 `json:"usagePercent,omitempty"`
	UsageGi      float64 `json:"usageGi,omitempty"`
	CapacityGi   float64 `json:"capacityGi,omitempty"`
}
