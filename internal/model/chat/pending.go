package chat

import "strings"

// PendingAction is a backend-initiated interruption that must be resolved
// before free-text turns resume. The only implementations are Confirm and
// Collect; a nil PendingAction means nothing is pending.
type PendingAction interface {
	pendingAction()
	PromptText() string
}

// Confirm asks the user to approve, reject or rewrite a generated query.
type Confirm struct {
	Prompt string
	Query  any
}

// Collect asks the user for the values of a write operation.
type Collect struct {
	Prompt        string
	Operation     string
	Collection    string
	Fields        []string
	OriginalQuery string
}

func (Confirm) pendingAction() {}
func (Collect) pendingAction() {}

func (c Confirm) PromptText() string { return c.Prompt }
func (c Collect) PromptText() string { return c.Prompt }

// ConfirmOptions are the only answers accepted for a Confirm action.
var ConfirmOptions = []string{"yes", "no", "rewrite"}

// IsConfirmOption reports whether option is one of ConfirmOptions.
func IsConfirmOption(option string) bool {
	for _, o := range ConfirmOptions {
		if o == option {
			return true
		}
	}
	return false
}

// HasField reports whether name is one of the requested fields.
func (c Collect) HasField(name string) bool {
	for _, f := range c.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Serialize renders values as "field=value, ..." in field order. Missing values are empty.
func (c Collect) Serialize(values map[string]string) string {
	parts := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		parts = append(parts, f+"="+values[f])
	}
	return strings.Join(parts, ", ")
}

// Values returns a copy of values restricted to the requested fields, with
// missing fields set to the empty string.
func (c Collect) Values(values map[string]string) map[string]string {
	out := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		out[f] = values[f]
	}
	return out
}
