package health

import (
	"fmt"
	"strings"
)

// restartThreshold is the restart count above which a not-ready container gets its
// restart count appended to the reason.
const restartThreshold = 3

// startupWaitReasons are normal while a pod is starting and never flag a container.
var startupWaitReasons = map[string]struct{}{
	"PodInitializing":   {},
	"ContainerCreating": {},
}

var criticalWaitReasons = map[string]struct{}{
	"CrashLoopBackOff":           {},
	"ImagePullBackOff":           {},
	"ErrImagePull":               {},
	"CreateContainerConfigError": {},
	"StartError":                 {},
	"SetupFailed":                {},
}

// podAssessment is the accumulator the pod rules run over. Later rules may overwrite
// what earlier rules decided.
type podAssessment struct {
	problematic bool
	reason      string
}

func (a *podAssessment) flag(reason string) {
	a.problematic = true
	a.reason = reason
}

// ClassifyPods returns a verdict for every problematic pod, in input order.
func ClassifyPods(pods []PodStatusRecord) []Verdict {
	verdicts := make([]Verdict, 0)
	for _, pod := range pods {
		a := assessPod(pod)
		if !a.problematic {
			continue
		}
		verdicts = append(verdicts, Verdict{
			Name:        pod.Name,
			Namespace:   pod.Namespace,
			Phase:       pod.Phase,
			Problematic: true,
			Reason:      strings.TrimSpace(a.reason),
		})
	}
	return verdicts
}

func assessPod(pod PodStatusRecord) podAssessment {
	var a podAssessment
	jobOwned := isJobOwned(pod)

	switch pod.Phase {
	case PhaseFailed, PhaseUnknown:
		a.flag(fmt.Sprintf("Pod phase is '%s'.", pod.Phase))
	}
	// Pending with no container statuses is startup grace: nothing to inspect yet.

	for _, cs := range pod.ContainerStatuses {
		switch {
		case cs.State.Waiting != nil:
			applyWaitingRule(&a, cs)
		case cs.State.Terminated != nil:
			applyTerminatedRule(&a, cs, jobOwned && pod.Phase == PhaseSucceeded)
		}
		if pod.Phase == PhaseRunning && !cs.Ready {
			applyNotReadyRule(&a, cs)
		}
	}

	if jobOwned && (pod.Phase == PhaseSucceeded || pod.Phase == PhaseCompleted) {
		applyJobCompletionOverride(&a, pod)
	}
	return a
}

func isJobOwned(pod PodStatusRecord) bool {
	for _, ref := range pod.OwnerReferences {
		if ref.Kind == "Job" {
			return true
		}
	}
	return false
}

func applyWaitingRule(a *podAssessment, cs ContainerStatusRecord) {
	reason := cs.State.Waiting.Reason
	if reason == "" {
		return
	}
	if _, ok := startupWaitReasons[reason]; ok {
		return
	}
	if _, ok := criticalWaitReasons[reason]; ok {
		a.flag(fmt.Sprintf("Container '%s' is waiting: %s.", cs.Name, reason))
	}
}

func applyTerminatedRule(a *podAssessment, cs ContainerStatusRecord, succeededJob bool) {
	term := cs.State.Terminated
	switch {
	case term.ExitCode != 0:
		reason := term.Reason
		if reason == "" {
			reason = "Error"
		}
		a.flag(fmt.Sprintf("Container '%s' terminated with exit code %d (reason: %s).", cs.Name, term.ExitCode, reason))
	case term.Reason == "Completed" && succeededJob:
		// finished Job container
	case term.Reason != "" && term.Reason != "Completed" && term.Reason != "OOMKilled":
		a.flag(fmt.Sprintf("Container '%s' terminated with reason: %s.", cs.Name, term.Reason))
	}
}

func applyNotReadyRule(a *podAssessment, cs ContainerStatusRecord) {
	if !a.problematic {
		a.flag(fmt.Sprintf("Container '%s' is not ready.", cs.Name))
	}
	if cs.RestartCount > restartThreshold {
		if !strings.Contains(a.reason, "CrashLoopBackOff") {
			a.reason += fmt.Sprintf(" It has restarted %d times.", cs.RestartCount)
		}
		a.problematic = true
	}
}

// applyJobCompletionOverride re-evaluates a finished Job pod from scratch: a clean exit of
// every container clears any earlier flag.
func applyJobCompletionOverride(a *podAssessment, pod PodStatusRecord) {
	if len(pod.ContainerStatuses) == 0 {
		reason := a.reason
		if reason == "" {
			reason = fmt.Sprintf("Job pod has no container statuses despite pod '%s'.", pod.Phase)
		}
		a.flag(reason)
		return
	}
	for _, cs := range pod.ContainerStatuses {
		term := cs.State.Terminated
		if term == nil {
			a.flag(fmt.Sprintf("Container '%s' in Job pod is not in a terminated state despite pod '%s'.", cs.Name, pod.Phase))
			return
		}
		if term.ExitCode != 0 {
			a.flag(fmt.Sprintf("Container '%s' in Job pod terminated with exit code %d.", cs.Name, term.ExitCode))
			return
		}
	}
	a.problematic = false
	a.reason = ""
}
