// Package view composes the user and developer views over session controllers.
package view

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
	chatsvc "github.com/zhouzirui/platepal/frontend/internal/service/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/session"
)

var ErrViewUnavailable = errors.New("developer view is disabled")

// Options configures a Workspace.
type Options struct {
	Mode    chat.Mode
	DevMode bool
	// SharedDevStore injects the user store into the developer controller so
	// both views show the same conversations. Otherwise the developer view
	// gets its own empty store.
	SharedDevStore bool
}

// Workspace owns the user-view controller and, in developer mode, a second
// read-only controller for the developer view.
type Workspace struct {
	backend backend.Backend
	log     *zap.Logger
	opts    Options

	mu       sync.Mutex
	user     *session.Controller
	dev      *session.Controller
	devUnsub []func()

	listenerMu sync.Mutex
	listeners  map[int]func()
	nextID     int
}

// NewWorkspace creates the user view over a fresh auto-initialised store.
func NewWorkspace(b backend.Backend, log *zap.Logger, opts Options) *Workspace {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = chat.ModeMongo
	}

	w := &Workspace{
		backend:   b,
		log:       log,
		opts:      opts,
		listeners: make(map[int]func()),
	}
	w.user = session.New(chatsvc.NewStore(true), b, log.Named("user"), session.WithMode(opts.Mode))
	w.user.Store().Subscribe(func(chatsvc.Snapshot) { w.notify() })
	w.user.Subscribe(w.notify)

	if opts.DevMode {
		w.SetDevMode(true)
	}
	return w
}

// User returns the user-view controller.
func (w *Workspace) User() *session.Controller {
	return w.user
}

// Developer returns the developer-view controller when developer mode is on.
func (w *Workspace) Developer() (*session.Controller, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dev, w.dev != nil
}

// DevMode reports whether the developer view is shown.
func (w *Workspace) DevMode() bool {
	_, ok := w.Developer()
	return ok
}

// SetDevMode shows or hides the developer view. Hiding it discards the
// developer controller and, when not shared, its store.
func (w *Workspace) SetDevMode(on bool) {
	w.mu.Lock()
	switch {
	case on && w.dev == nil:
		store := w.user.Store()
		if !w.opts.SharedDevStore {
			store = chatsvc.NewStore(false)
		}
		w.dev = session.New(store, w.backend, w.log.Named("dev"),
			session.WithMode(w.user.Mode()),
			session.WithReadOnly())
		w.devUnsub = []func(){w.dev.Subscribe(w.notify)}
		if !w.opts.SharedDevStore {
			w.devUnsub = append(w.devUnsub, store.Subscribe(func(chatsvc.Snapshot) { w.notify() }))
		}
	case !on && w.dev != nil:
		for _, unsub := range w.devUnsub {
			unsub()
		}
		w.dev, w.devUnsub = nil, nil
	default:
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.log.Info("developer view toggled", zap.Bool("enabled", on))
	w.notify()
}

// Controller returns the controller behind kind.
func (w *Workspace) Controller(kind Kind) (*session.Controller, error) {
	if kind == Developer {
		dev, ok := w.Developer()
		if !ok {
			return nil, ErrViewUnavailable
		}
		return dev, nil
	}
	return w.user, nil
}

// Render draws the view of the given kind.
func (w *Workspace) Render(kind Kind, search string) (State, error) {
	c, err := w.Controller(kind)
	if err != nil {
		return State{}, err
	}
	return Render(c, kind, search), nil
}

// Subscribe registers fn to run after any change visible in either view.
func (w *Workspace) Subscribe(fn func()) func() {
	w.listenerMu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	w.listenerMu.Unlock()

	return func() {
		w.listenerMu.Lock()
		delete(w.listeners, id)
		w.listenerMu.Unlock()
	}
}

func (w *Workspace) notify() {
	w.listenerMu.Lock()
	listeners := make([]func(), 0, len(w.listeners))
	for _, l := range w.listeners {
		listeners = append(listeners, l)
	}
	w.listenerMu.Unlock()

	for _, l := range listeners {
		l()
	}
}
