package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannysoft/mesa-client/internal/api"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/ui/chatbox"
	"github.com/hannysoft/mesa-client/internal/ui/incidentlist"
	"github.com/hannysoft/mesa-client/internal/ui/login"
	"github.com/hannysoft/mesa-client/tests/testutil"
)

// newBackend serves the minimal API surface a fresh session touches: an
// empty incident board, no alerts, and a single chat conversation.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	serve := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		})
	}
	serve("/api/incidents/mine", `[]`)
	serve("/api/incidents/returned", `[]`)
	serve("/api/incidents/supervision", `[]`)
	serve("/api/incidents", `[]`)
	serve("/api/alerts/mine", `{"alerts":[],"unread_count":0}`)
	serve("/api/chat/unread", `{"count":0}`)
	serve("/api/chat/conversations",
		`[{"id":1,"counterpart_id":7,"counterpart_name":"Laura Ortiz","last_message":"hola","unread_count":0}]`)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// newSignedInModel builds the root model, sizes it, and signs the actor
// in. The returned cmd is the login batch with every startup command.
func newSignedInModel(t *testing.T, role model.Role) (Model, tea.Cmd) {
	t.Helper()

	server := newBackend(t)
	client := api.NewClient(server.URL, "tok")
	st := testutil.NewTestStore(t)

	cfg := &model.AppConfig{
		Server: model.ServerConfig{BaseURL: server.URL},
		Poll:   model.PollConfig{IncidentsSec: 3600, AlertsSec: 3600, AlertBannerSec: 3600},
	}

	m := New(cfg, client, st, "")
	um, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 32})
	m = um.(Model)

	um, cmd := m.Update(login.ResultMsg{
		Token: "tok",
		Actor: model.Actor{ID: 3, Name: "Ana", Role: role},
	})
	m = um.(Model)
	t.Cleanup(func() { m.shutdown() })
	return m, cmd
}

// runCmds executes a command tree, flattening batches and forwarding
// every produced message to out.
func runCmds(cmd tea.Cmd, out chan<- tea.Msg) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				runCmds(c, out)
			}
			return
		}
		if msg != nil {
			out <- msg
		}
	}()
}

func awaitResolved(t *testing.T, out <-chan tea.Msg) chatbox.ResolvedMsg {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg := <-out:
			if resolved, ok := msg.(chatbox.ResolvedMsg); ok {
				return resolved
			}
		case <-deadline:
			t.Fatal("counterpart was never resolved")
		}
	}
}

func TestTechnicianChatSurfaceResolves(t *testing.T) {
	m, cmd := newSignedInModel(t, model.RoleTecnico)
	require.Equal(t, ViewIncidents, m.currentView)

	// The startup batch must include the counterpart resolution even
	// though the dashboard, not the chat widget, is the active view.
	out := make(chan tea.Msg, 64)
	runCmds(cmd, out)
	resolved := awaitResolved(t, out)

	um, _ := m.Update(resolved)
	m = um.(Model)

	um, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	m = um.(Model)
	require.Equal(t, ViewChat, m.currentView)

	view := m.View()
	assert.NotContains(t, view, "Conectando", "chat surface must not be stuck loading")
	assert.Contains(t, view, "Laura Ortiz")
}

func TestIncidentLoadLandsWhileAnotherViewIsActive(t *testing.T) {
	m, _ := newSignedInModel(t, model.RoleTecnico)

	um, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	m = um.(Model)
	require.Equal(t, ViewNotifications, m.currentView)

	um, _ = m.Update(incidentlist.IncidentsLoadedMsg{
		Mode: incidentlist.ModeMine,
		Incidents: []model.Incident{{
			ID:        42,
			Folio:     "INC-042",
			Title:     "impresora sin tóner",
			Status:    model.StatusEnProceso,
			UpdatedAt: time.Now(),
		}},
	})
	m = um.(Model)

	um, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = um.(Model)
	require.Equal(t, ViewIncidents, m.currentView)
	assert.Contains(t, m.View(), "INC-042")
}
