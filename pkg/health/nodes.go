package health

import "fmt"

const (
	conditionReady = "Ready"
	conditionTrue  = "True"
)

// ClassifyNodes returns a verdict for every unhealthy node, in input order. A node is
// unhealthy when its Ready condition is missing or not True, or when any other condition
// is True.
func ClassifyNodes(nodes []NodeStatusRecord) []Verdict {
	verdicts := make([]Verdict, 0)
	for _, node := range nodes {
		reason, unhealthy := assessNode(node)
		if !unhealthy {
			continue
		}
		verdicts = append(verdicts, Verdict{
			Name:        node.Name,
			Problematic: true,
			Reason:      reason,
		})
	}
	return verdicts
}

func assessNode(node NodeStatusRecord) (string, bool) {
	var ready *NodeCondition
	for i := range node.Conditions {
		if node.Conditions[i].Type == conditionReady {
			ready = &node.Conditions[i]
			break
		}
	}

	if ready == nil {
		return "Node is not ready. Status: Unknown, Reason: Unknown", true
	}
	if ready.Status != conditionTrue {
		return fmt.Sprintf("Node is not ready. Status: %s, Reason: %s", ready.Status, ready.Reason), true
	}

	for _, cond := range node.Conditions {
		if cond.Type != conditionReady && cond.Status == conditionTrue {
			return fmt.Sprintf("Node has active pressure condition: %s", cond.Type), true
		}
	}
	return "", false
}
