package view_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
	"github.com/zhouzirui/platepal/frontend/internal/service/session"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type scriptedBackend struct {
	body string
}

func (b scriptedBackend) Query(context.Context, string, chat.Mode) (*backend.Response, error) {
	return backend.DecodeResponse([]byte(b.body))
}

func (scriptedBackend) Submit(context.Context, backend.SubmitRequest) (*backend.SubmitReply, error) {
	return &backend.SubmitReply{Result: "done"}, nil
}

func TestDeveloperViewDisabledByDefault(t *testing.T) {
	w := view.NewWorkspace(scriptedBackend{body: `{}`}, nil, view.Options{})

	_, err := w.Render(view.Developer, "")
	assert.ErrorIs(t, err, view.ErrViewUnavailable)

	state, err := w.Render(view.User, "")
	require.NoError(t, err)
	require.Len(t, state.Conversations, 1)
	assert.Equal(t, "New Chat 1", state.Conversations[0].Title)
	assert.True(t, state.InputEnabled)
	assert.Equal(t, chat.ModeMongo, state.Mode)
}

func TestSharedStoreShowsQueryCodeOnlyInDeveloperView(t *testing.T) {
	w := view.NewWorkspace(scriptedBackend{body: `{"data":[{"name":"Pad Thai"}]}`}, nil,
		view.Options{DevMode: true, SharedDevStore: true})

	turn, ok := w.User().Submit(context.Background(), "noodles")
	require.True(t, ok)
	require.Equal(t, session.OutcomeAnswered, turn.Wait().Kind)

	user, err := w.Render(view.User, "")
	require.NoError(t, err)
	dev, err := w.Render(view.Developer, "")
	require.NoError(t, err)

	require.NotNil(t, user.Active)
	require.NotNil(t, dev.Active)
	require.Len(t, user.Active.Messages, 2)
	require.Len(t, dev.Active.Messages, 2)

	assert.Empty(t, user.Active.Messages[1].QueryCode)
	assert.Empty(t, user.Active.Messages[1].RawBackendPayload)
	assert.NotEmpty(t, dev.Active.Messages[1].QueryCode)
	assert.Contains(t, dev.Active.Messages[1].RawBackendPayload, `Query processed: "noodles"`)
	assert.False(t, dev.InputEnabled, "developer view is read-only")
}

func TestUnsharedDeveloperStoreStartsEmpty(t *testing.T) {
	w := view.NewWorkspace(scriptedBackend{body: `{}`}, nil, view.Options{DevMode: true})

	dev, err := w.Render(view.Developer, "")
	require.NoError(t, err)
	assert.Empty(t, dev.Conversations)
	assert.Nil(t, dev.Active)
	assert.False(t, dev.InputEnabled)
}

func TestDeveloperControllerRejectsSubmission(t *testing.T) {
	w := view.NewWorkspace(scriptedBackend{body: `{}`}, nil, view.Options{DevMode: true, SharedDevStore: true})

	dev, ok := w.Developer()
	require.True(t, ok)
	_, ok = dev.Submit(context.Background(), "hello")
	assert.False(t, ok)
}

func TestSetDevModeTogglesAndNotifies(t *testing.T) {
	w := view.NewWorkspace(scriptedBackend{body: `{}`}, nil, view.Options{SharedDevStore: true})

	calls := 0
	unsub := w.Subscribe(func() { calls++ })
	defer unsub()

	w.SetDevMode(true)
	assert.True(t, w.DevMode())
	assert.Equal(t, 1, calls)

	w.SetDevMode(true)
	assert.Equal(t, 1, calls, "no-op toggle must not notify")

	w.SetDevMode(false)
	assert.False(t, w.DevMode())
	assert.Equal(t, 2, calls)
}

func TestRenderPendingConfirmation(t *testing.T) {
	w := view.NewWorkspace(scriptedBackend{body: `{"action":"confirm_query","prompt":"Delete it?","query":{"op":"delete"}}`}, nil, view.Options{})

	turn, ok := w.User().Submit(context.Background(), "delete pasta")
	require.True(t, ok)
	require.Equal(t, session.OutcomeConfirming, turn.Wait().Kind)

	state, err := w.Render(view.User, "")
	require.NoError(t, err)
	require.NotNil(t, state.Pending)
	assert.Equal(t, "confirm", state.Pending.Type)
	assert.Equal(t, "Delete it?", state.Pending.Prompt)
	assert.Equal(t, []string{"yes", "no", "rewrite"}, state.Pending.Options)
	assert.False(t, state.InputEnabled)
}

func TestRenderSearchFiltersSidebar(t *testing.T) {
	w := view.NewWorkspace(scriptedBackend{body: `{}`}, nil, view.Options{})
	store := w.User().Store()
	second := store.NewConversation()
	require.NoError(t, store.Rename(second.ID, "Dinner ideas"))

	state, err := w.Render(view.User, "dinner")
	require.NoError(t, err)
	require.Len(t, state.Conversations, 1)
	assert.Equal(t, "Dinner ideas", state.Conversations[0].Title)
	assert.True(t, state.Conversations[0].Active)
}

func TestParseKind(t *testing.T) {
	kind, err := view.ParseKind("dev")
	require.NoError(t, err)
	assert.Equal(t, view.Developer, kind)

	_, err = view.ParseKind("admin")
	assert.Error(t, err)
}
