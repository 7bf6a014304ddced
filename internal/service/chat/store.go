package chat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Snapshot is an immutable view of the store at one point in time.
type Snapshot struct {
	Conversations []chat.Conversation
	ActiveID      string
}

// Active returns the conversation the active pointer refers to.
func (s Snapshot) Active() (chat.Conversation, bool) {
	if s.ActiveID == "" {
		return chat.Conversation{}, false
	}
	for _, c := range s.Conversations {
		if c.ID == s.ActiveID {
			return c, true
		}
	}
	return chat.Conversation{}, false
}

// Listener is notified with the new snapshot after every mutation.
type Listener func(Snapshot)

// Store holds the ordered conversations of one session. Every mutation
// replaces the whole collection, so snapshots handed out earlier never change.
type Store struct {
	mu            sync.RWMutex
	conversations []chat.Conversation
	activeID      string

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int

	now func() time.Time
}

// NewStore returns an empty store. With autoInit it starts with one active conversation.
func NewStore(autoInit bool) *Store {
	s := &Store{
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
	if autoInit {
		first := chat.NewConversation("New Chat 1", s.now())
		s.conversations = []chat.Conversation{first}
		s.activeID = first.ID
	}
	return s
}

// SetClock overrides the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Snapshot returns the current collection and active pointer.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Conversations: s.conversations, ActiveID: s.activeID}
}

// ActiveID returns the active conversation id, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns the active conversation.
func (s *Store) Active() (chat.Conversation, bool) {
	return s.Snapshot().Active()
}

// Get looks up a conversation by id.
func (s *Store) Get(id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.conversations[i], nil
	}
	return chat.Conversation{}, ErrConversationNotFound
}

// List returns the filtered, ordered sidebar entries without mutating the store.
func (s *Store) List(search string) []chat.Conversation {
	return List(s.Snapshot().Conversations, search)
}

// NewConversation creates an empty conversation at the front and makes it active.
func (s *Store) NewConversation() chat.Conversation {
	s.mu.Lock()
	conv := chat.NewConversation(fmt.Sprintf("New Chat %d", len(s.conversations)+1), s.now())
	next := make([]chat.Conversation, 0, len(s.conversations)+1)
	next = append(next, conv)
	next = append(next, s.conversations...)
	s.conversations = next
	s.activeID = conv.ID
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return conv
}

// Select moves the active pointer.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	s.activeID = id
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Rename sets the title. A blank title is ignored.
func (s *Store) Rename(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		_, err := s.Get(id)
		return err
	}
	return s.update(id, func(c chat.Conversation) chat.Conversation {
		c.Title = title
		return c
	})
}

// SetStarred pins or unpins a conversation.
func (s *Store) SetStarred(id string, starred bool) error {
	return s.update(id, func(c chat.Conversation) chat.Conversation {
		c.Starred = starred
		return c
	})
}

// Patch applies a rename and a star change as one mutation. A nil or blank
// title keeps the current title; a nil starred keeps the flag.
func (s *Store) Patch(id string, title *string, starred *bool) error {
	var newTitle string
	if title != nil {
		newTitle = strings.TrimSpace(*title)
	}
	if newTitle == "" && starred == nil {
		_, err := s.Get(id)
		return err
	}
	return s.update(id, func(c chat.Conversation) chat.Conversation {
		if newTitle != "" {
			c.Title = newTitle
		}
		if starred != nil {
			c.Starred = *starred
		}
		return c
	})
}

// Append adds msg to the end of the conversation's log.
func (s *Store) Append(id string, msg chat.Message) error {
	s.mu.RLock()
	now := s.now()
	s.mu.RUnlock()
	return s.update(id, func(c chat.Conversation) chat.Conversation {
		return c.WithMessage(msg, now)
	})
}

// Delete removes a conversation. When it was active, the first remaining
// conversation (the most recently created) becomes active, or none.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrConversationNotFound
	}

	next := make([]chat.Conversation, 0, len(s.conversations)-1)
	next = append(next, s.conversations[:i]...)
	next = append(next, s.conversations[i+1:]...)
	s.conversations = next

	if s.activeID == id {
		s.activeID = ""
		if len(next) > 0 {
			s.activeID = next[0].ID
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Subscribe registers fn for change notifications and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Store) update(id string, fn func(chat.Conversation) chat.Conversation) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrConversationNotFound
	}

	next := make([]chat.Conversation, len(s.conversations))
	copy(next, s.conversations)
	next[i] = fn(next[i])
	s.conversations = next
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Conversations: s.conversations, ActiveID: s.activeID}
}

func (s *Store) notify(snap Snapshot) {
	s.listenerMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenerMu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// List filters conversations by a case-insensitive substring of the title or
// last message and orders starred entries first, then newest first.
func List(conversations []chat.Conversation, search string) []chat.Conversation {
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]chat.Conversation, 0, len(conversations))
	for _, c := range conversations {
		if needle == "" ||
			strings.Contains(strings.ToLower(c.Title), needle) ||
			strings.Contains(strings.ToLower(c.LastMessage), needle) {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Starred != out[j].Starred {
			return out[i].Starred
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
