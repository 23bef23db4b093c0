package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannysoft/mesa-client/internal/api"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/tests/testutil"
)

// fakeChatAPI serves canned threads keyed by counterpart and records writes.
type fakeChatAPI struct {
	conversations []model.Conversation
	threads       map[int][]model.Message
	unread        int
	admin         *api.AdminInfo

	sendErr     error
	messagesErr error
	markReadErr error

	nextID   int
	markedAs []int
}

func (f *fakeChatAPI) Conversations(context.Context) ([]model.Conversation, error) {
	return f.conversations, nil
}

func (f *fakeChatAPI) Messages(_ context.Context, counterpartID int) ([]model.Message, error) {
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return f.threads[counterpartID], nil
}

func (f *fakeChatAPI) SendMessage(
	_ context.Context,
	counterpartID int,
	body string,
) (*model.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	msg := model.Message{
		ID:         f.nextID,
		FromUserID: 100,
		ToUserID:   counterpartID,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	if f.threads == nil {
		f.threads = map[int][]model.Message{}
	}
	f.threads[counterpartID] = append(f.threads[counterpartID], msg)
	return &msg, nil
}

func (f *fakeChatAPI) UnreadCount(context.Context) (int, error) {
	return f.unread, nil
}

func (f *fakeChatAPI) MarkConversationRead(_ context.Context, counterpartID int) error {
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.markedAs = append(f.markedAs, counterpartID)
	return nil
}

func (f *fakeChatAPI) GetAdminInfo(context.Context) (*api.AdminInfo, error) {
	return f.admin, nil
}

func newTestService(t *testing.T, a *fakeChatAPI) *Service {
	t.Helper()
	actor := model.Actor{ID: 100, Name: "Paco", Role: model.RoleTecnico}
	return NewService(a, testutil.NewTestStore(t), actor)
}

func msgAt(id, from, to int, body string, offset time.Duration) model.Message {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return model.Message{
		ID:         id,
		FromUserID: from,
		ToUserID:   to,
		Body:       body,
		CreatedAt:  base.Add(offset),
	}
}

func TestOpenLoadsHistoryAndMarksRead(t *testing.T) {
	a := &fakeChatAPI{
		nextID: 10,
		threads: map[int][]model.Message{
			7: {
				msgAt(1, 7, 100, "hola", 0),
				msgAt(2, 100, 7, "buenas", time.Minute),
			},
		},
	}
	svc := newTestService(t, a)

	thread, err := svc.Open(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "hola", thread[0].Body)
	assert.Equal(t, []int{7}, a.markedAs)
}

func TestOpenToleratesMarkReadFailure(t *testing.T) {
	a := &fakeChatAPI{
		nextID:      10,
		threads:     map[int][]model.Message{7: {msgAt(1, 7, 100, "hola", 0)}},
		markReadErr: errors.New("503"),
	}
	svc := newTestService(t, a)

	thread, err := svc.Open(context.Background(), 7)
	require.NoError(t, err, "a failed mark-read does not lose the thread")
	assert.Len(t, thread, 1)
}

func TestSendAppearsExactlyOnce(t *testing.T) {
	a := &fakeChatAPI{nextID: 40}
	svc := newTestService(t, a)

	thread, err := svc.Send(context.Background(), 7, "hola")
	require.NoError(t, err)

	var seen int
	for _, m := range thread {
		if m.Body == "hola" {
			seen++
		}
	}
	assert.Equal(t, 1, seen, "sent message renders once after the reload")

	t.Run("push echo of the send stays deduplicated", func(t *testing.T) {
		arrival, err := svc.HandlePush(context.Background(), thread[len(thread)-1])
		require.NoError(t, err)
		assert.False(t, arrival.New)

		local, err := svc.Thread(context.Background(), 7)
		require.NoError(t, err)
		assert.Len(t, local, 1)
	})
}

func TestSendFailureAdvancesNothing(t *testing.T) {
	a := &fakeChatAPI{sendErr: errors.New("timeout")}
	svc := newTestService(t, a)

	_, err := svc.Send(context.Background(), 7, "hola")
	require.Error(t, err)

	local, err := svc.Thread(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestHandlePushReportsNewExactlyOnce(t *testing.T) {
	svc := newTestService(t, &fakeChatAPI{})
	msg := msgAt(55, 7, 100, "sigue pendiente?", 0)

	first, err := svc.HandlePush(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, first.New)
	assert.Equal(t, 7, first.CounterpartID)

	second, err := svc.HandlePush(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, second.New, "duplicate delivery must not chime again")
}

func TestHandlePushResolvesOwnEchoToRecipient(t *testing.T) {
	svc := newTestService(t, &fakeChatAPI{})

	// A message we sent from another session: the thread it belongs to is
	// the recipient's, not our own.
	arrival, err := svc.HandlePush(context.Background(), msgAt(56, 100, 7, "ya quedó", 0))
	require.NoError(t, err)
	assert.Equal(t, 7, arrival.CounterpartID)
}

func TestPushAndReloadConverge(t *testing.T) {
	a := &fakeChatAPI{
		threads: map[int][]model.Message{
			7: {
				msgAt(1, 7, 100, "hola", 0),
				msgAt(2, 100, 7, "buenas", time.Minute),
			},
		},
	}
	svc := newTestService(t, a)

	// Push wins the race and lands before the history reload that also
	// contains message 2.
	_, err := svc.HandlePush(context.Background(), msgAt(2, 100, 7, "buenas", time.Minute))
	require.NoError(t, err)

	thread, err := svc.Open(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, 1, thread[0].ID)
	assert.Equal(t, 2, thread[1].ID)
}

func TestDirectoryAndUnreadTotal(t *testing.T) {
	a := &fakeChatAPI{
		conversations: []model.Conversation{
			{ID: 1, CounterpartID: 7, CounterpartName: "Marta", UnreadCount: 2},
		},
		unread: 2,
	}
	svc := newTestService(t, a)

	dir, err := svc.Directory(context.Background())
	require.NoError(t, err)
	require.Len(t, dir, 1)
	assert.Equal(t, "Marta", dir[0].CounterpartName)

	total, err := svc.UnreadTotal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
