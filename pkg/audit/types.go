package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventCommandDenied   EventType = "command.denied"
	EventCommandExecuted EventType = "command.executed"
	EventCommandFailed   EventType = "command.failed"
)

// Result represents the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultDenied  Result = "denied"
)

// Event is a single audit record.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	EventType     EventType `json:"event_type"`
	Result        Result    `json:"result"`

	Requester   string `json:"requester,omitempty"`
	KubeContext string `json:"kube_context,omitempty"`

	Command string `json:"command"`
	Keyword string `json:"keyword,omitempty"`

	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// NewEvent creates an event stamped with the current time and a fresh correlation ID.
func NewEvent(eventType EventType, result Result) *Event {
	return &Event{
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
		EventType:     eventType,
		Result:        result,
	}
}

func (e *Event) WithRequester(requester string) *Event {
	e.Requester = requester
	return e
}

func (e *Event) WithKubeContext(kubeContext string) *Event {
	e.KubeContext = kubeContext
	return e
}

func (e *Event) WithCommand(command string) *Event {
	e.Command = command
	return e
}

func (e *Event) WithKeyword(keyword string) *Event {
	e.Keyword = keyword
	return e
}

func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func (e *Event) WithDuration(d time.Duration) *Event {
	e.DurationMs = d.Milliseconds()
	return e
}
