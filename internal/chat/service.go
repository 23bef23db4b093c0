package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hannysoft/mesa-client/internal/api"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/store"
)

// API is the slice of the backend the chat subsystem consumes.
type API interface {
	Conversations(ctx context.Context) ([]model.Conversation, error)
	Messages(ctx context.Context, counterpartID int) ([]model.Message, error)
	SendMessage(ctx context.Context, counterpartID int, body string) (*model.Message, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkConversationRead(ctx context.Context, counterpartID int) error
	GetAdminInfo(ctx context.Context) (*api.AdminInfo, error)
}

// Arrival describes what a push-delivered message means for the UI.
type Arrival struct {
	// Message is the delivered message after the merge.
	Message model.Message

	// New reports whether the message ID was previously unseen. Duplicate
	// deliveries (push racing a reload) come back with New == false and
	// must not chime or badge again.
	New bool

	// CounterpartID is the conversation the message belongs to.
	CounterpartID int
}

// Service implements the chat protocol shared by the three role-scoped
// widgets: directory with unread counts, history load, send-then-reload,
// and the merge of push-delivered messages. Poll-delivered and
// push-delivered updates for the same message may race; both paths funnel
// through the ID-indexed merge store so each ID renders exactly once.
type Service struct {
	api   API
	store store.Store
	actor model.Actor
}

// NewService creates the chat service for the signed-in actor.
func NewService(a API, st store.Store, actor model.Actor) *Service {
	return &Service{api: a, store: st, actor: actor}
}

// Directory fetches the conversation list, most recently active first.
func (s *Service) Directory(ctx context.Context) ([]model.Conversation, error) {
	return s.api.Conversations(ctx)
}

// UnreadTotal fetches the total unread message count across conversations.
func (s *Service) UnreadTotal(ctx context.Context) (int, error) {
	return s.api.UnreadCount(ctx)
}

// ResolveAdmin resolves the single counterpart for the end-user widget.
func (s *Service) ResolveAdmin(ctx context.Context) (*api.AdminInfo, error) {
	return s.api.GetAdminInfo(ctx)
}

// Open loads the full history with a counterpart and marks the
// conversation read. The unread count is zeroed optimistically in the UI;
// a failed mark-read is logged and reconciled by the next directory poll.
func (s *Service) Open(ctx context.Context, counterpartID int) ([]model.Message, error) {
	thread, err := s.reload(ctx, counterpartID)
	if err != nil {
		return nil, err
	}

	if err := s.api.MarkConversationRead(ctx, counterpartID); err != nil {
		slog.Warn("marking conversation read failed",
			"counterpart", counterpartID, "error", err)
	}

	return thread, nil
}

// Send posts a message and reloads the thread from the server. There is no
// optimistic insertion: the displayed order always matches server state at
// the cost of one extra round trip. On failure nothing is advanced and the
// caller surfaces the error so the send stays retryable.
func (s *Service) Send(
	ctx context.Context,
	counterpartID int,
	body string,
) ([]model.Message, error) {
	if _, err := s.api.SendMessage(ctx, counterpartID, body); err != nil {
		return nil, err
	}
	return s.reload(ctx, counterpartID)
}

// HandlePush merges a push-delivered message into the store and reports
// whether it was genuinely new. The caller decides what to do with it:
// append to the open thread, refresh the directory, auto-open the widget.
func (s *Service) HandlePush(ctx context.Context, msg model.Message) (Arrival, error) {
	counterpartID := msg.FromUserID
	if counterpartID == s.actor.ID {
		// Echo of our own send from another session.
		counterpartID = msg.ToUserID
	}

	inserted, err := s.store.MergeMessage(ctx, counterpartID, msg)
	if err != nil {
		return Arrival{}, fmt.Errorf("merging pushed message %d: %w", msg.ID, err)
	}

	return Arrival{
		Message:       msg,
		New:           inserted,
		CounterpartID: counterpartID,
	}, nil
}

// Thread returns the locally merged thread with a counterpart.
func (s *Service) Thread(ctx context.Context, counterpartID int) ([]model.Message, error) {
	return s.store.MessagesWith(ctx, counterpartID)
}

// reload fetches the server history, merges it by ID, and returns the
// merged thread in creation order.
func (s *Service) reload(ctx context.Context, counterpartID int) ([]model.Message, error) {
	history, err := s.api.Messages(ctx, counterpartID)
	if err != nil {
		return nil, fmt.Errorf("reloading thread with %d: %w", counterpartID, err)
	}

	if err := s.store.MergeMessages(ctx, counterpartID, history); err != nil {
		return nil, err
	}

	return s.store.MessagesWith(ctx, counterpartID)
}
