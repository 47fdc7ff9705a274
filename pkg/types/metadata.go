package types

import "time"

// ClusterMetadata provides context for every tool response.
type ClusterMetadata struct {
	ClusterName string    `json:"clusterName"`
	KubeContext string    `json:"kubeContext"`
	Timestamp   time.Time `json:"timestamp"`
	Namespace   string    `json:"namespace,omitempty"`
}

// ToolResult is the standard response envelope for the classification tools. Message is
// the human-readable summary line; Details carries the tool's raw payload when it has one.
type ToolResult struct {
	Message  string              `json:"message"`
	Findings []DiagnosticFinding `json:"findings"`
	Details  interface{}         `json:"details,omitempty"`
	Metadata ClusterMetadata     `json:"metadata"`
	IsError  bool                `json:"isError,omitempty"`
}
