package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/hannysoft/mesa-client/internal/model"
)

// dialTimeout bounds the websocket handshake.
const dialTimeout = 10 * time.Second

// pushEvent is the single event type carried on the push channel.
type pushEvent struct {
	Type    string        `json:"type"`
	Message model.Message `json:"message"`
}

// identityFrame is sent exactly once after connect so the server can route
// messages to this session.
type identityFrame struct {
	UserID int `json:"user_id"`
}

// PushMsg is a tea.Msg delivered when a chat message arrives over the push
// channel, or when the channel fails.
type PushMsg struct {
	Message model.Message
	Err     error
}

// PushClient maintains the realtime websocket to the chat backend. One
// identity frame is sent per connection; after that the client only reads.
// The connection must be closed on view teardown and re-dialed on remount
// so sockets never leak across navigations.
type PushClient struct {
	url   string
	token string

	mu      sync.Mutex
	conn    *websocket.Conn
	eventCh chan PushMsg
	closed  bool
}

// NewPushClient creates a push client for the given websocket URL. The
// session token is passed as a bearer header on the handshake.
func NewPushClient(url, token string) *PushClient {
	return &PushClient{
		url:     url,
		token:   token,
		eventCh: make(chan PushMsg, 32),
	}
}

// Connect dials the websocket, authenticates by sending the actor's
// identity once, and starts the read loop.
func (p *PushClient) Connect(userID int) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	header := http.Header{}
	if p.token != "" {
		header.Set("Authorization", "Bearer "+p.token)
	}

	conn, _, err := dialer.Dial(p.url, header)
	if err != nil {
		return fmt.Errorf("dialing push channel %s: %w", p.url, err)
	}

	if err := conn.WriteJSON(identityFrame{UserID: userID}); err != nil {
		conn.Close()
		return fmt.Errorf("sending identity frame: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.closed = false
	p.mu.Unlock()

	go p.readLoop(conn)
	return nil
}

// Close tears down the connection. Safe to call more than once and before
// Connect.
func (p *PushClient) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// readLoop reads events until the connection drops. A read error after an
// explicit Close is expected and swallowed; otherwise it is surfaced so
// the owner can re-dial.
func (p *PushClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			p.mu.Lock()
			closed := p.closed
			p.mu.Unlock()
			if !closed {
				p.send(PushMsg{Err: err})
			}
			return
		}

		var event pushEvent
		if err := json.Unmarshal(data, &event); err != nil {
			// Malformed frame: skip it rather than kill the channel.
			continue
		}
		if event.Type != "chat_message" {
			continue
		}

		p.send(PushMsg{Message: event.Message})
	}
}

// send delivers an event without blocking the read loop.
func (p *PushClient) send(msg PushMsg) {
	select {
	case p.eventCh <- msg:
	default:
	}
}

// WaitForEvent returns a tea.Cmd that waits for the next push event.
// Call again after processing a PushMsg to keep listening.
func (p *PushClient) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-p.eventCh
		if !ok {
			return nil
		}
		return event
	}
}
