// Package session drives turn-taking between the user, the backend and the
// conversation store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
	chatsvc "github.com/zhouzirui/platepal/frontend/internal/service/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/interpret"
)

const (
	ConnectivityErrorText = "Sorry, there was an error connecting to the backend service. Please try again later."
	SubmitErrorText       = "Sorry, the submission could not be completed. Please try again later."
)

var (
	ErrReadOnly             = errors.New("session is read-only")
	ErrNoPendingAction      = errors.New("no matching pending action")
	ErrInvalidOption        = errors.New("invalid confirmation option")
	ErrUnknownField         = errors.New("unknown field")
	ErrTurnInFlight         = errors.New("a turn is already in flight")
	ErrNoActiveConversation = errors.New("no active conversation")
)

// Status is a consistent copy of the controller state for rendering.
type Status struct {
	Input    string
	Mode     chat.Mode
	InFlight bool
	ReadOnly bool
	State    State
	Pending  chat.PendingAction
	Values   map[string]string
}

// Controller owns the turn pipeline of one view. The in-flight flag allows a
// single turn at a time; a live pending action blocks free-text turns.
type Controller struct {
	store    *chatsvc.Store
	backend  backend.Backend
	log      *zap.Logger
	now      func() time.Time
	readOnly bool

	mu       sync.Mutex
	input    string
	mode     chat.Mode
	inFlight bool
	pending  pendingMachine

	listenerMu sync.Mutex
	listeners  map[int]func()
	nextID     int
}

// Option configures a Controller.
type Option func(*Controller)

// WithMode sets the initial query mode.
func WithMode(mode chat.Mode) Option {
	return func(c *Controller) { c.mode = mode }
}

// WithReadOnly disables every input path.
func WithReadOnly() Option {
	return func(c *Controller) { c.readOnly = true }
}

// WithClock overrides the time source for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New returns a controller over store. The store may be shared with another
// controller; nothing else is.
func New(store *chatsvc.Store, b backend.Backend, log *zap.Logger, opts ...Option) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		store:     store,
		backend:   b,
		log:       log,
		now:       time.Now,
		mode:      chat.ModeMongo,
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the conversation store this controller appends to.
func (c *Controller) Store() *chatsvc.Store {
	return c.store
}

// Status returns the current controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Input:    c.input,
		Mode:     c.mode,
		InFlight: c.inFlight,
		ReadOnly: c.readOnly,
		State:    c.pending.state(),
		Pending:  c.pending.action,
		Values:   c.pending.snapshotValues(),
	}
}

// State returns the pending-action state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.state()
}

// InFlight reports whether a turn is waiting for the backend.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Input returns the input buffer.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the input buffer.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// Mode returns the query mode.
func (c *Controller) Mode() chat.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches the query mode used by subsequent turns.
func (c *Controller) SetMode(mode chat.Mode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	c.notify()
}

// Subscribe registers fn to run after every controller state change.
func (c *Controller) Subscribe(fn func()) func() {
	c.listenerMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenerMu.Unlock()

	return func() {
		c.listenerMu.Lock()
		delete(c.listeners, id)
		c.listenerMu.Unlock()
	}
}

// Submit starts a normal turn. It returns false, changing nothing, when text
// is blank, a turn is in flight, no conversation is active, a pending action
// is live or the controller is read-only.
func (c *Controller) Submit(ctx context.Context, text string) (*Turn, bool) {
	c.mu.Lock()
	if c.readOnly || c.pending.state() != Idle {
		c.mu.Unlock()
		return nil, false
	}
	turn, ok := c.startLocked(text)
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return c.launch(ctx, turn)
}

// SubmitInput submits the input buffer.
func (c *Controller) SubmitInput(ctx context.Context) (*Turn, bool) {
	return c.Submit(ctx, c.Input())
}

// Confirm answers a confirmation request with yes, no or rewrite. The option
// is sent through the normal turn pipeline and the pending action is cleared.
func (c *Controller) Confirm(ctx context.Context, option string) (*Turn, error) {
	c.mu.Lock()
	if c.readOnly {
		c.mu.Unlock()
		return nil, ErrReadOnly
	}
	if _, err := c.pending.confirm(option); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrTurnInFlight
	}

	c.input = option
	turn, ok := c.startLocked(option)
	c.pending.clear()
	c.mu.Unlock()

	if !ok {
		c.notify()
		return nil, ErrNoActiveConversation
	}
	if t, ok := c.launch(ctx, turn); ok {
		return t, nil
	}
	return nil, ErrNoActiveConversation
}

// SetField buffers one value for the live collect request.
func (c *Controller) SetField(name, value string) error {
	c.mu.Lock()
	if c.readOnly {
		c.mu.Unlock()
		return ErrReadOnly
	}
	err := c.pending.setField(name, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

// SubmitFields resolves the live collect request. The serialized values, when
// there are any, are shown as the user's message and the raw values are posted to the submit
// endpoint, bypassing the interpreter. The pending action is cleared even
// when the endpoint fails.
func (c *Controller) SubmitFields(ctx context.Context) (*Turn, error) {
	c.mu.Lock()
	if c.readOnly {
		c.mu.Unlock()
		return nil, ErrReadOnly
	}
	collect, values, err := c.pending.collected()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	c.pending.clear()
	c.inFlight = true
	c.input = ""
	turn := newTurn(c.store.ActiveID(), collect.Serialize(values), c.mode)
	c.mu.Unlock()

	// A collect request without fields serializes to nothing; only the reply is shown.
	if turn.ConversationID != "" && strings.TrimSpace(turn.Input) != "" {
		msg := chat.NewUserMessage(turn.Input, c.now())
		if err := c.store.Append(turn.ConversationID, msg); err != nil {
			c.log.Warn("failed to append submitted fields", zap.String("conversation", turn.ConversationID), zap.Error(err))
			turn.ConversationID = ""
		} else {
			turn.UserMessage = msg
		}
	}
	c.notify()

	req := backend.SubmitRequest{
		Operation:     collect.Operation,
		Table:         collect.Collection,
		Fields:        values,
		Mode:          turn.mode,
		OriginalQuery: collect.OriginalQuery,
	}
	go c.runSubmit(context.WithoutCancel(ctx), turn, req)
	return turn, nil
}

func (c *Controller) startLocked(text string) (*Turn, bool) {
	text = strings.TrimSpace(text)
	if text == "" || c.inFlight {
		return nil, false
	}
	conversationID := c.store.ActiveID()
	if conversationID == "" {
		return nil, false
	}

	c.inFlight = true
	c.input = ""
	return newTurn(conversationID, text, c.mode), true
}

func (c *Controller) launch(ctx context.Context, t *Turn) (*Turn, bool) {
	msg := chat.NewUserMessage(t.Input, c.now())
	if err := c.store.Append(t.ConversationID, msg); err != nil {
		c.log.Warn("failed to append user message", zap.String("conversation", t.ConversationID), zap.Error(err))
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
		c.notify()
		return nil, false
	}
	t.UserMessage = msg
	c.notify()

	// The backend call is not cancellable once issued.
	go c.run(context.WithoutCancel(ctx), t)
	return t, true
}

func (c *Controller) run(ctx context.Context, t *Turn) {
	var (
		outcome Outcome
		next    chat.PendingAction
	)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("turn processing failed: %v", r)
			c.log.Error("turn processing panicked", zap.String("conversation", t.ConversationID), zap.Error(err))
			next = nil
			outcome = c.reply(t, OutcomeTransportError, chat.NewAssistantMessage(ConnectivityErrorText, "", "", c.now()))
			outcome.Err = err
		}
		c.resolve(t, outcome, next)
	}()

	resp, err := c.backend.Query(ctx, t.Input, t.mode)
	if err != nil {
		c.log.Warn("backend query failed", zap.String("conversation", t.ConversationID), zap.String("mode", string(t.mode)), zap.Error(err))
		outcome = c.reply(t, OutcomeTransportError, chat.NewAssistantMessage(ConnectivityErrorText, "", "", c.now()))
		outcome.Err = err
		return
	}

	switch r := interpret.Interpret(resp, t.Input, t.mode).(type) {
	case interpret.CollectRequest:
		next = chat.Collect{
			Prompt:        r.Prompt,
			Operation:     r.Operation,
			Collection:    r.Collection,
			Fields:        r.Fields,
			OriginalQuery: t.Input,
		}
		outcome = Outcome{Kind: OutcomeCollecting, Pending: next}
	case interpret.ConfirmRequest:
		next = chat.Confirm{Prompt: r.Prompt, Query: r.Query}
		outcome = Outcome{Kind: OutcomeConfirming, Pending: next}
	case interpret.Answer:
		outcome = c.reply(t, OutcomeAnswered, chat.NewAssistantMessage(r.Content, r.QueryCode, r.RawTrace, c.now()))
	case interpret.Failure:
		outcome = c.reply(t, OutcomeFailed, chat.NewAssistantMessage(r.Content, "", r.RawTrace, c.now()))
	default:
		panic(fmt.Sprintf("unhandled interpretation %T", r))
	}
}

func (c *Controller) runSubmit(ctx context.Context, t *Turn, req backend.SubmitRequest) {
	var outcome Outcome
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("submission processing failed: %v", r)
			c.log.Error("submission panicked", zap.Error(err))
			outcome = c.reply(t, OutcomeSubmitFailed, chat.NewAssistantMessage(SubmitErrorText, "", "", c.now()))
			outcome.Err = err
		}
		c.resolve(t, outcome, nil)
	}()

	reply, err := c.backend.Submit(ctx, req)
	if err != nil {
		c.log.Warn("structured submission failed",
			zap.String("operation", req.Operation),
			zap.String("table", req.Table),
			zap.Error(err))
		outcome = c.reply(t, OutcomeSubmitFailed, chat.NewAssistantMessage(SubmitErrorText, "", "", c.now()))
		outcome.Err = err
		return
	}

	outcome = c.reply(t, OutcomeSubmitted, chat.NewAssistantMessage(reply.Text(), "", submitTrace(req, reply), c.now()))
}

// reply appends msg to the turn's conversation. The conversation may have been
// deleted while the turn was in flight; the message is then dropped.
func (c *Controller) reply(t *Turn, kind OutcomeKind, msg chat.Message) Outcome {
	outcome := Outcome{Kind: kind}
	if t.ConversationID == "" {
		return outcome
	}
	if err := c.store.Append(t.ConversationID, msg); err != nil {
		c.log.Info("dropping reply for missing conversation", zap.String("conversation", t.ConversationID), zap.Error(err))
		return outcome
	}
	outcome.Reply = &msg
	return outcome
}

func (c *Controller) resolve(t *Turn, outcome Outcome, next chat.PendingAction) {
	c.mu.Lock()
	if next != nil {
		c.pending.begin(next)
	}
	c.inFlight = false
	c.mu.Unlock()

	t.outcome = outcome
	c.notify()
	close(t.done)
}

func (c *Controller) notify() {
	c.listenerMu.Lock()
	listeners := make([]func(), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenerMu.Unlock()

	for _, l := range listeners {
		l()
	}
}

func submitTrace(req backend.SubmitRequest, reply *backend.SubmitReply) string {
	reqJSON, _ := json.Marshal(req)
	replyJSON, _ := json.Marshal(reply)
	return fmt.Sprintf("Submitted: %s\nEndpoint reply: %s", reqJSON, replyJSON)
}
