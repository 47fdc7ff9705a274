package health

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInsufficientData means no usable capacity or usage data was supplied, which is
// distinct from an evaluation where no node exceeded the threshold.
var ErrInsufficientData = errors.New("insufficient node memory data")

// topMemoryField is the MEMORY(bytes) column of `kubectl top nodes --no-headers`.
const topMemoryField = 3

// MemoryCapacities builds the capacity map from node records. Nodes whose capacity
// cannot be parsed are left out.
func MemoryCapacities(nodes []NodeStatusRecord) map[string]Quantity {
	capacities := make(map[string]Quantity, len(nodes))
	for _, n := range nodes {
		q, err := ParseQuantity(n.MemoryCapacity)
		if err != nil {
			slog.Warn("health: skipping node with unparsable memory capacity", "node", n.Name, "capacity", n.MemoryCapacity, "error", err)
			continue
		}
		if q.Value == 0 {
			slog.Warn("health: skipping node with zero memory capacity", "node", n.Name)
			continue
		}
		capacities[n.Name] = q
	}
	return capacities
}

// ParseMetricLines parses `kubectl top nodes --no-headers` output. Lines with fewer than
// four fields or an unparsable memory column are skipped.
func ParseMetricLines(output string) []NodeMetricRecord {
	var metrics []NodeMetricRecord
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) <= topMemoryField {
			continue
		}
		q, err := ParseQuantity(fields[topMemoryField])
		if err != nil {
			slog.Warn("health: could not parse memory usage", "node", fields[0], "usage", fields[topMemoryField])
			continue
		}
		metrics = append(metrics, NodeMetricRecord{Name: fields[0], MemoryUsage: q})
	}
	return metrics
}

// EvaluateMemory flags nodes whose memory usage is strictly above thresholdPercent of
// capacity. Metrics for nodes without capacity data are skipped since the node may have
// gone away between the two queries.
func EvaluateMemory(capacities map[string]Quantity, metrics []NodeMetricRecord, thresholdPercent int) ([]Verdict, error) {
	if len(capacities) == 0 {
		return nil, fmt.Errorf("%w: no node reported a usable memory capacity", ErrInsufficientData)
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("%w: no usable memory usage metrics", ErrInsufficientData)
	}

	verdicts := make([]Verdict, 0)
	seen := make(map[string]struct{}, len(metrics))
	for _, m := range metrics {
		capacity, ok := capacities[m.Name]
		if !ok {
			continue
		}
		if _, dup := seen[m.Name]; dup {
			continue
		}
		seen[m.Name] = struct{}{}

		capacityKi := capacity.Kibibytes()
		if capacityKi <= 0 {
			continue
		}
		usageKi := m.MemoryUsage.Kibibytes()
		usagePercent := usageKi * 100 / capacityKi
		if usagePercent <= float64(thresholdPercent) {
			continue
		}
		verdicts = append(verdicts, Verdict{
			Name:         m.Name,
			Problematic:  true,
			Reason:       fmt.Sprintf("%.2f%% used (%.2fGi / %.2fGi)", usagePercent, usageKi/kiPerGi, capacityKi/kiPerGi),
			UsagePercent: usagePercent,
			UsageGi:      usageKi / kiPerGi,
			CapacityGi:   capacityKi / kiPerGi,
		})
	}
	return verdicts, nil
}
