package session

import (
	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
)

// OutcomeKind says how a turn resolved.
type OutcomeKind int

const (
	// OutcomeAnswered appended an assistant answer.
	OutcomeAnswered OutcomeKind = iota
	// OutcomeFailed appended the backend's failure text.
	OutcomeFailed
	// OutcomeConfirming moved the session to AwaitingConfirmation.
	OutcomeConfirming
	// OutcomeCollecting moved the session to AwaitingFields.
	OutcomeCollecting
	// OutcomeTransportError appended the connectivity error message.
	OutcomeTransportError
	// OutcomeSubmitted appended the reply of the submit endpoint.
	OutcomeSubmitted
	// OutcomeSubmitFailed appended the submission error message.
	OutcomeSubmitFailed
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeAnswered:       "answered",
	OutcomeFailed:         "failed",
	OutcomeConfirming:     "confirming",
	OutcomeCollecting:     "collecting",
	OutcomeTransportError: "transport_error",
	OutcomeSubmitted:      "submitted",
	OutcomeSubmitFailed:   "submit_failed",
}

func (k OutcomeKind) String() string {
	if name, ok := outcomeNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON payloads.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the single resolution of a Turn.
type Outcome struct {
	Kind OutcomeKind
	// Reply is the assistant message appended by this turn, if any.
	Reply *chat.Message
	// Pending is the action started by this turn, if any.
	Pending chat.PendingAction
	// Err is the transport or processing error that was absorbed into a message.
	Err error
}

// Turn is one in-flight backend round trip. It resolves exactly once.
type Turn struct {
	ConversationID string
	Input          string
	UserMessage    chat.Message

	mode    chat.Mode
	done    chan struct{}
	outcome Outcome
}

func newTurn(conversationID, input string, mode chat.Mode) *Turn {
	return &Turn{
		ConversationID: conversationID,
		Input:          input,
		mode:           mode,
		done:           make(chan struct{}),
	}
}

// Done is closed when the turn has resolved.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn resolves and returns its outcome.
func (t *Turn) Wait() Outcome {
	<-t.done
	return t.outcome
}
