package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waiting(name, reason string) ContainerStatusRecord {
	return ContainerStatusRecord{Name: name, State: ContainerState{Waiting: &WaitingState{Reason: reason}}}
}

func terminated(name, reason string, code int32) ContainerStatusRecord {
	return ContainerStatusRecord{Name: name, State: ContainerState{Terminated: &TerminatedState{Reason: reason, ExitCode: code}}}
}

func running(name string, ready bool, restarts int32) ContainerStatusRecord {
	return ContainerStatusRecord{Name: name, Ready: ready, RestartCount: restarts, State: ContainerState{Running: &RunningState{}}}
}

var jobOwner = []OwnerReference{{Kind: "Job"}}

func TestClassifyPods_Rules(t *testing.T) {
	tests := []struct {
		name       string
		pod        PodStatusRecord
		wantFlag   bool
		wantReason string
	}{
		{
			name:       "failed phase",
			pod:        PodStatusRecord{Name: "p", Phase: PhaseFailed},
			wantFlag:   true,
			wantReason: "Pod phase is 'Failed'.",
		},
		{
			name:       "unknown phase",
			pod:        PodStatusRecord{Name: "p", Phase: PhaseUnknown},
			wantFlag:   true,
			wantReason: "Pod phase is 'Unknown'.",
		},
		{
			name:     "pending without container statuses is startup grace",
			pod:      PodStatusRecord{Name: "p", Phase: PhasePending},
			wantFlag: false,
		},
		{
			name:       "crash loop",
			pod:        PodStatusRecord{Name: "p", Phase: PhasePending, ContainerStatuses: []ContainerStatusRecord{waiting("app", "CrashLoopBackOff")}},
			wantFlag:   true,
			wantReason: "Container 'app' is waiting: CrashLoopBackOff.",
		},
		{
			name:     "container creating is normal",
			pod:      PodStatusRecord{Name: "p", Phase: PhasePending, ContainerStatuses: []ContainerStatusRecord{waiting("app", "ContainerCreating")}},
			wantFlag: false,
		},
		{
			name:     "non-critical waiting reason is ignored",
			pod:      PodStatusRecord{Name: "p", Phase: PhasePending, ContainerStatuses: []ContainerStatusRecord{waiting("app", "SomethingElse")}},
			wantFlag: false,
		},
		{
			name:       "non-zero exit code",
			pod:        PodStatusRecord{Name: "p", Phase: PhaseRunning, ContainerStatuses: []ContainerStatusRecord{{Name: "app", Ready: true, State: ContainerState{Terminated: &TerminatedState{ExitCode: 2}}}}},
			wantFlag:   true,
			wantReason: "Container 'app' terminated with exit code 2 (reason: Error).",
		},
		{
			name:     "oom killed with zero exit is not flagged by termination rule",
			pod:      PodStatusRecord{Name: "p", Phase: PhaseSucceeded, ContainerStatuses: []ContainerStatusRecord{terminated("app", "OOMKilled", 0)}},
			wantFlag: false,
		},
		{
			name:       "unexpected termination reason",
			pod:        PodStatusRecord{Name: "p", Phase: PhaseSucceeded, ContainerStatuses: []ContainerStatusRecord{terminated("app", "DeadlineExceeded", 0)}},
			wantFlag:   true,
			wantReason: "Container 'app' terminated with reason: DeadlineExceeded.",
		},
		{
			name:       "running but not ready",
			pod:        PodStatusRecord{Name: "p", Phase: PhaseRunning, ContainerStatuses: []ContainerStatusRecord{running("app", false, 0)}},
			wantFlag:   true,
			wantReason: "Container 'app' is not ready.",
		},
		{
			name:       "not ready with many restarts",
			pod:        PodStatusRecord{Name: "p", Phase: PhaseRunning, ContainerStatuses: []ContainerStatusRecord{running("app", false, 7)}},
			wantFlag:   true,
			wantReason: "Container 'app' is not ready. It has restarted 7 times.",
		},
		{
			name:       "not ready keeps the more specific reason",
			pod:        PodStatusRecord{Name: "p", Phase: PhaseRunning, ContainerStatuses: []ContainerStatusRecord{{Name: "app", RestartCount: 9, State: ContainerState{Waiting: &WaitingState{Reason: "CrashLoopBackOff"}}}}},
			wantFlag:   true,
			wantReason: "Container 'app' is waiting: CrashLoopBackOff.",
		},
		{
			name:       "restart count exactly at threshold is not appended",
			pod:        PodStatusRecord{Name: "p", Phase: PhaseRunning, ContainerStatuses: []ContainerStatusRecord{running("app", false, 3)}},
			wantFlag:   true,
			wantReason: "Container 'app' is not ready.",
		},
		{
			name:     "healthy running pod",
			pod:      PodStatusRecord{Name: "p", Phase: PhaseRunning, ContainerStatuses: []ContainerStatusRecord{running("app", true, 12)}},
			wantFlag: false,
		},
		{
			name: "later container overrides earlier reason",
			pod: PodStatusRecord{Name: "p", Phase: PhasePending, ContainerStatuses: []ContainerStatusRecord{
				waiting("a", "ErrImagePull"),
				waiting("b", "ImagePullBackOff"),
			}},
			wantFlag:   true,
			wantReason: "Container 'b' is waiting: ImagePullBackOff.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyPods([]PodStatusRecord{tc.pod})
			if !tc.wantFlag {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.True(t, got[0].Problematic)
			assert.Equal(t, tc.wantReason, got[0].Reason)
			assert.Equal(t, tc.pod.Phase, got[0].Phase)
		})
	}
}

func TestClassifyPods_FailedPhaseAlwaysFlagged(t *testing.T) {
	states := [][]ContainerStatusRecord{
		nil,
		{running("app", true, 0)},
		{terminated("app", "Completed", 0)},
		{waiting("app", "ContainerCreating")},
	}
	for _, phase := range []string{PhaseFailed, PhaseUnknown} {
		for _, cs := range states {
			got := ClassifyPods([]PodStatusRecord{{Name: "p", Phase: phase, ContainerStatuses: cs}})
			require.Len(t, got, 1, "phase %s with %d containers", phase, len(cs))
		}
	}
}

func TestClassifyPods_JobCompletionOverride(t *testing.T) {
	tests := []struct {
		name       string
		pod        PodStatusRecord
		wantFlag   bool
		wantReason string
	}{
		{
			name: "succeeded job with clean exits",
			pod: PodStatusRecord{Name: "j", Phase: PhaseSucceeded, OwnerReferences: jobOwner, ContainerStatuses: []ContainerStatusRecord{
				terminated("main", "Completed", 0),
				terminated("sidecar", "Completed", 0),
			}},
			wantFlag: false,
		},
		{
			name: "clean job overrides an earlier termination-reason flag",
			pod: PodStatusRecord{Name: "j", Phase: PhaseSucceeded, OwnerReferences: jobOwner, ContainerStatuses: []ContainerStatusRecord{
				terminated("main", "DeadlineExceeded", 0),
			}},
			wantFlag: false,
		},
		{
			name: "succeeded job with a killed container",
			pod: PodStatusRecord{Name: "j", Phase: PhaseSucceeded, OwnerReferences: jobOwner, ContainerStatuses: []ContainerStatusRecord{
				terminated("main", "Completed", 0),
				terminated("sidecar", "Error", 137),
			}},
			wantFlag:   true,
			wantReason: "Container 'sidecar' in Job pod terminated with exit code 137.",
		},
		{
			name: "completed job with a container still running",
			pod: PodStatusRecord{Name: "j", Phase: PhaseCompleted, OwnerReferences: jobOwner, ContainerStatuses: []ContainerStatusRecord{
				running("main", true, 0),
			}},
			wantFlag:   true,
			wantReason: "Container 'main' in Job pod is not in a terminated state despite pod 'Completed'.",
		},
		{
			name:       "succeeded job without container statuses",
			pod:        PodStatusRecord{Name: "j", Phase: PhaseSucceeded, OwnerReferences: jobOwner},
			wantFlag:   true,
			wantReason: "Job pod has no container statuses despite pod 'Succeeded'.",
		},
		{
			name: "non-job pod is not overridden",
			pod: PodStatusRecord{Name: "p", Phase: PhaseSucceeded, OwnerReferences: []OwnerReference{{Kind: "ReplicaSet"}}, ContainerStatuses: []ContainerStatusRecord{
				terminated("main", "DeadlineExceeded", 0),
			}},
			wantFlag:   true,
			wantReason: "Container 'main' terminated with reason: DeadlineExceeded.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyPods([]PodStatusRecord{tc.pod})
			if !tc.wantFlag {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tc.wantReason, got[0].Reason)
		})
	}
}

func TestClassifyPods_OrderAndDeterminism(t *testing.T) {
	pods := []PodStatusRecord{
		{Name: "a", Namespace: "ns", Phase: PhaseFailed},
		{Name: "b", Namespace: "ns", Phase: PhaseRunning, ContainerStatuses: []ContainerStatusRecord{running("c", true, 0)}},
		{Name: "c", Namespace: "ns", Phase: PhaseRunning, ContainerStatuses: []ContainerStatusRecord{running("c", false, 0)}},
		{Name: "d", Namespace: "ns", Phase: PhaseUnknown},
	}

	first := ClassifyPods(pods)
	second := ClassifyPods(pods)

	require.Len(t, first, 3)
	assert.Equal(t, []string{"a", "c", "d"}, []string{first[0].Name, first[1].Name, first[2].Name})
	assert.Equal(t, "ns", first[0].Namespace)
	assert.Equal(t, first, second)
}
