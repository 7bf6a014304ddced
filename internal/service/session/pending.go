package session

import (
	"fmt"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
)

// State is the position of the pending-action state machine.
type State int

const (
	Idle State = iota
	AwaitingConfirmation
	AwaitingFields
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case AwaitingFields:
		return "awaiting_fields"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// pendingMachine holds at most one live pending action plus the field buffer
// of a Collect action. Callers hold the controller lock.
type pendingMachine struct {
	action chat.PendingAction
	values map[string]string
}

func (m *pendingMachine) state() State {
	switch m.action.(type) {
	case nil:
		return Idle
	case chat.Confirm:
		return AwaitingConfirmation
	case chat.Collect:
		return AwaitingFields
	default:
		panic(fmt.Sprintf("session: unhandled pending action %T", m.action))
	}
}

// begin replaces any prior pending action.
func (m *pendingMachine) begin(action chat.PendingAction) {
	m.action = action
	switch action.(type) {
	case chat.Collect:
		m.values = map[string]string{}
	case chat.Confirm, nil:
		m.values = nil
	default:
		panic(fmt.Sprintf("session: unhandled pending action %T", action))
	}
}

func (m *pendingMachine) clear() {
	m.begin(nil)
}

func (m *pendingMachine) confirm(option string) (chat.Confirm, error) {
	confirm, ok := m.action.(chat.Confirm)
	if !ok {
		return chat.Confirm{}, ErrNoPendingAction
	}
	if !chat.IsConfirmOption(option) {
		return chat.Confirm{}, fmt.Errorf("%w: %q", ErrInvalidOption, option)
	}
	return confirm, nil
}

func (m *pendingMachine) setField(name, value string) error {
	collect, ok := m.action.(chat.Collect)
	if !ok {
		return ErrNoPendingAction
	}
	if !collect.HasField(name) {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	m.values[name] = value
	return nil
}

func (m *pendingMachine) collected() (chat.Collect, map[string]string, error) {
	collect, ok := m.action.(chat.Collect)
	if !ok {
		return chat.Collect{}, nil, ErrNoPendingAction
	}
	return collect, collect.Values(m.values), nil
}

func (m *pendingMachine) snapshotValues() map[string]string {
	if m.values == nil {
		return nil
	}
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
