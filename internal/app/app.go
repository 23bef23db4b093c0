package app

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hannysoft/mesa-client/internal/api"
	"github.com/hannysoft/mesa-client/internal/audio"
	"github.com/hannysoft/mesa-client/internal/chat"
	"github.com/hannysoft/mesa-client/internal/credential"
	"github.com/hannysoft/mesa-client/internal/escalate"
	"github.com/hannysoft/mesa-client/internal/keys"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/notify"
	"github.com/hannysoft/mesa-client/internal/returned"
	"github.com/hannysoft/mesa-client/internal/store"
	appsync "github.com/hannysoft/mesa-client/internal/sync"
	"github.com/hannysoft/mesa-client/internal/ui"
	"github.com/hannysoft/mesa-client/internal/ui/alertview"
	"github.com/hannysoft/mesa-client/internal/ui/chatbox"
	"github.com/hannysoft/mesa-client/internal/ui/chatmgr"
	"github.com/hannysoft/mesa-client/internal/ui/incidentlist"
	"github.com/hannysoft/mesa-client/internal/ui/login"
	"github.com/hannysoft/mesa-client/internal/ui/notifdrop"
)

// countTimeout bounds the returned-incidents badge fetch.
const countTimeout = 10 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewIncidents
	ViewReturned
	ViewNotifications
	ViewChat
)

// returnedCountMsg carries the suppressed badge value.
type returnedCountMsg struct {
	count int
	err   error
}

// viewedMsg reports that the returned-incidents screen was marked viewed.
type viewedMsg struct {
	err error
}

// chatUnreadMsg carries the server-side total of unread chat messages.
type chatUnreadMsg struct {
	count int
	err   error
}

// Model is the root Bubble Tea model. It routes views, owns the lifecycle
// of every polling component, and fans realtime results out to the
// widgets. All pollers and the push channel are stopped on quit so no
// timer or socket outlives the program.
type Model struct {
	cfg    *model.AppConfig
	client *api.Client
	store  *store.SQLiteStore
	layout ui.Layout
	keys   *keys.KeyMap

	// initialToken is a session token restored from the keyring or the
	// environment, validated against the backend before skipping login.
	initialToken string

	actor model.Actor
	ready bool

	gate       *audio.Gate
	dispatcher *notify.Dispatcher
	poller     *appsync.Poller
	engine     *escalate.Engine
	banner     *escalate.Banner
	chatSvc    *chat.Service
	push       *chat.PushClient
	suppressor *returned.Suppressor

	currentView ViewState
	loginView   login.Model
	incidents   incidentlist.Model
	returnedLst incidentlist.Model
	notifView   notifdrop.Model
	alertModal  alertview.Model
	chatView    chatbox.Model
	managerView chatmgr.Model

	alertUnread      int
	chatUnread       int
	supervisionCount int
	returnedCount    int
	pushBroken       bool
}

// New creates the root application model.
func New(cfg *model.AppConfig, client *api.Client, st *store.SQLiteStore, token string) Model {
	k := keys.DefaultKeyMap()
	return Model{
		cfg:          cfg,
		client:       client,
		store:        st,
		keys:         k,
		initialToken: token,
		currentView:  ViewLogin,
		loginView:    login.New(client, 80, 24),
	}
}

// Init starts the login form and, when a stored token exists, tries to
// resume the previous session in the background.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loginView.Init()}
	if m.initialToken != "" {
		cmds = append(cmds, m.resumeSession())
	}
	return tea.Batch(cmds...)
}

// resumeSession validates the restored token against the backend. A valid
// token skips the login form; a rejected one is dropped from the keyring
// and the form stays up.
func (m Model) resumeSession() tea.Cmd {
	client := m.client
	token := m.initialToken
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
		defer cancel()

		actor, err := client.Me(ctx)
		if err != nil {
			if api.IsAuthError(err) {
				if derr := credential.Delete(credential.TokenKey); derr != nil {
					slog.Warn("clearing stored session token failed", "error", derr)
				}
			}
			return nil
		}
		return login.ResultMsg{Token: token, Actor: *actor}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.loginView.SetSize(contentWidth, contentHeight)
		if m.actor.ID != 0 {
			m.incidents.SetSize(contentWidth, contentHeight)
			m.returnedLst.SetSize(contentWidth, contentHeight)
			m.notifView.SetSize(contentWidth, contentHeight)
			m.alertModal.SetSize(contentWidth, contentHeight)
			m.chatView.SetSize(contentWidth, contentHeight)
			m.managerView.SetSize(contentWidth, contentHeight)
		}
		return m.updateActiveView(msg)

	case tea.KeyMsg:
		// The first qualifying gesture opens the audio gate, one-way.
		if m.gate != nil && !m.gate.Unlocked() {
			m.gate.Unlock()
		}
		return m.handleKeys(msg)

	case login.ResultMsg:
		if m.actor.ID != 0 {
			// Already signed in; a late session-resume result is stale.
			return m, nil
		}
		if msg.Err != nil {
			var cmd tea.Cmd
			m.loginView, cmd = m.loginView.Update(msg)
			return m, cmd
		}
		return m.onLogin(msg)

	case appsync.DeltaMsg:
		return m.onDelta(msg)

	case escalate.EngineMsg:
		return m.onEngine(msg)

	case escalate.BannerMsg:
		if msg.Err != nil {
			slog.Warn("alert banner poll failed", "error", msg.Err)
		} else {
			m.alertUnread = msg.UnreadCount
		}
		return m, m.banner.WaitForNextResult()

	case chat.PushMsg:
		return m.onPush(msg)

	case returnedCountMsg:
		if msg.err != nil {
			slog.Warn("returned count fetch failed", "error", msg.err)
		} else {
			m.returnedCount = msg.count
		}
		return m, nil

	case chatUnreadMsg:
		if msg.err != nil {
			slog.Warn("chat unread fetch failed", "error", msg.err)
		} else if m.currentView != ViewChat {
			// An open chat surface keeps its optimistic zero.
			m.chatUnread = msg.count
		}
		return m, nil

	case viewedMsg:
		if msg.err != nil {
			slog.Warn("marking returned incidents viewed failed", "error", msg.err)
		} else {
			m.returnedCount = 0
		}
		return m, nil

	case alertview.AckResultMsg:
		var cmd tea.Cmd
		m.alertModal, cmd = m.alertModal.Update(msg)
		return m, cmd

	case chatbox.ResolvedMsg:
		// The counterpart resolver finishes while the dashboard is still
		// the active view; hand the result to the chat widget directly or
		// it never leaves its loading state.
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd

	case incidentlist.IncidentsLoadedMsg:
		// Loads land in the owning list even when another view is showing,
		// so a poll-triggered refresh is never dropped.
		var cmd tea.Cmd
		if msg.Mode == incidentlist.ModeReturned {
			m.returnedLst, cmd = m.returnedLst.Update(msg)
		} else {
			m.incidents, cmd = m.incidents.Update(msg)
		}
		return m, cmd
	}

	return m.updateActiveView(msg)
}

// onLogin wires the realtime components for the signed-in actor and
// starts every poller the role calls for.
func (m Model) onLogin(msg login.ResultMsg) (tea.Model, tea.Cmd) {
	m.actor = msg.Actor
	m.client.SetToken(msg.Token)

	if err := credential.Set(credential.TokenKey, msg.Token); err != nil {
		// The session still works; it just will not survive a restart.
		slog.Warn("storing session token failed", "error", err)
	}

	m.gate = audio.NewGate(m.cfg.Notify.Sound)
	m.dispatcher = notify.NewDispatcher(m.gate, m.cfg.Notify.Desktop)
	m.poller = appsync.New(
		m.client, m.actor.Role,
		time.Duration(m.cfg.Poll.IncidentsSec)*time.Second,
	)
	m.engine = escalate.NewEngine(
		m.client, m.actor.Role, m.gate,
		time.Duration(m.cfg.Poll.AlertsSec)*time.Second,
	)
	m.banner = escalate.NewBanner(
		m.client,
		time.Duration(m.cfg.Poll.AlertBannerSec)*time.Second,
	)
	m.chatSvc = chat.NewService(m.client, m.store, m.actor)
	m.push = chat.NewPushClient(m.pushURL(), msg.Token)
	m.suppressor = returned.NewSuppressor(m.client, m.store, m.actor.ID)

	contentWidth, contentHeight := 80, 22
	if m.ready {
		contentWidth = m.layout.ContentWidth()
		contentHeight = m.layout.ContentHeight()
	}

	m.incidents = incidentlist.New(m.client, m.keys, incidentlist.ModeMine, contentWidth, contentHeight)
	m.returnedLst = incidentlist.New(m.client, m.keys, incidentlist.ModeReturned, contentWidth, contentHeight)
	m.notifView = notifdrop.New(m.dispatcher, m.keys, contentWidth, contentHeight)
	m.alertModal = alertview.New(m.engine, m.keys, contentWidth, contentHeight)
	m.managerView = chatmgr.New(m.chatSvc, m.actor, m.keys, contentWidth, contentHeight)

	switch m.actor.Role {
	case model.RoleUsuario:
		m.chatView = chatbox.New(m.chatSvc, m.actor, chatbox.AdminResolver(m.chatSvc), contentWidth, contentHeight)
	default:
		m.chatView = chatbox.New(m.chatSvc, m.actor, chatbox.FirstConversationResolver(m.chatSvc), contentWidth, contentHeight)
	}

	cmds := []tea.Cmd{
		m.poller.Start(),
		m.engine.Start(),
		m.banner.Start(),
		m.connectPush(),
		m.fetchChatUnread(),
	}

	switch m.actor.Role {
	case model.RoleUsuario:
		m.currentView = ViewChat
		cmds = append(cmds, m.chatView.Init(), m.chatView.Focus())
	case model.RoleCoordinador:
		m.currentView = ViewChat
		cmds = append(cmds, m.managerView.Init())
	default:
		// Technicians and administrators share the dashboard; both can
		// reach the chat surface, so both resolve its counterpart now.
		m.currentView = ViewIncidents
		cmds = append(cmds, m.incidents.Init(), m.chatView.Init(), m.fetchReturnedCount())
	}

	return m, tea.Batch(cmds...)
}

// pushURL derives the websocket endpoint from the configured base URL
// when no explicit ws_url is set.
func (m Model) pushURL() string {
	if m.cfg.Server.WSURL != "" {
		return m.cfg.Server.WSURL
	}
	base := m.cfg.Server.BaseURL
	switch {
	case len(base) > 8 && base[:8] == "https://":
		return "wss://" + base[8:] + "/ws/chat"
	case len(base) > 7 && base[:7] == "http://":
		return "ws://" + base[7:] + "/ws/chat"
	default:
		return base + "/ws/chat"
	}
}

// connectPush dials the push channel and subscribes to its events.
func (m *Model) connectPush() tea.Cmd {
	if err := m.push.Connect(m.actor.ID); err != nil {
		slog.Warn("push channel connect failed", "error", err)
		m.pushBroken = true
		return nil
	}
	m.pushBroken = false
	return m.push.WaitForEvent()
}

// onDelta fans a poll delta out to the dispatcher and refreshes the
// dependent views, then re-subscribes.
func (m Model) onDelta(msg appsync.DeltaMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.poller.WaitForNextResult()}

	if msg.Err != nil {
		if api.IsAuthError(msg.Err) {
			return m.onAuthFailure()
		}
		// Transient: the next tick replays the same window.
		slog.Warn("incident poll failed", "error", msg.Err)
		return m, tea.Batch(cmds...)
	}

	if len(msg.Assigned) > 0 || len(msg.Pending) > 0 {
		m.dispatcher.Dispatch(msg.Assigned, msg.Pending)
		cmds = append(cmds, m.incidents.Load())
	}
	cmds = append(cmds, m.fetchReturnedCount())

	return m, tea.Batch(cmds...)
}

// onEngine surfaces a new escalation episode and tracks the supervision
// count, then re-subscribes.
func (m Model) onEngine(msg escalate.EngineMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if api.IsAuthError(msg.Err) {
			return m.onAuthFailure()
		}
		slog.Warn("alert poll failed", "error", msg.Err)
		return m, m.engine.WaitForNextResult()
	}

	m.supervisionCount = msg.SupervisionCount
	if msg.Alert != nil {
		m.alertModal.Present(msg.Alert)
	}

	return m, m.engine.WaitForNextResult()
}

// onPush merges a push-delivered chat message and routes its effects: the
// open thread appends, everything else badges, chimes, and auto-opens the
// chat surface so a closed widget never swallows a message.
func (m Model) onPush(msg chat.PushMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		slog.Warn("push channel dropped", "error", msg.Err)
		m.pushBroken = true
		return m, nil
	}

	cmds := []tea.Cmd{m.push.WaitForEvent()}

	ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
	arrival, err := m.chatSvc.HandlePush(ctx, msg.Message)
	cancel()
	if err != nil {
		slog.Warn("merging pushed message failed", "error", err)
		return m, tea.Batch(cmds...)
	}

	if !arrival.New {
		// Duplicate delivery; the merge store already holds it.
		return m, tea.Batch(cmds...)
	}

	openID := m.openCounterpartID()
	if m.currentView == ViewChat && arrival.CounterpartID == openID {
		cmds = append(cmds, m.reloadOpenThread())
		if m.actor.Role == model.RoleCoordinador {
			// Keep directory ordering and previews current.
			cmds = append(cmds, m.managerView.RefreshDirectory())
		}
		return m, tea.Batch(cmds...)
	}

	// Closed widget: badge, chime, and auto-open. The badge bump is
	// optimistic; the server total reconciles it.
	m.chatUnread++
	m.gate.PlayIncident()
	m.currentView = ViewChat
	if m.actor.Role == model.RoleCoordinador {
		cmds = append(cmds, m.managerView.RefreshDirectory())
	} else {
		cmds = append(cmds, m.chatView.ReloadFromLocal())
	}
	cmds = append(cmds, m.fetchChatUnread())

	return m, tea.Batch(cmds...)
}

// fetchChatUnread fetches the authoritative unread chat total.
func (m Model) fetchChatUnread() tea.Cmd {
	svc := m.chatSvc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
		defer cancel()

		count, err := svc.UnreadTotal(ctx)
		return chatUnreadMsg{count: count, err: err}
	}
}

// onAuthFailure tears the session down and returns to the login form. The
// stored token is dropped so the next launch does not retry a dead session.
func (m Model) onAuthFailure() (tea.Model, tea.Cmd) {
	slog.Warn("session rejected by the backend, signing out")
	if err := credential.Delete(credential.TokenKey); err != nil {
		slog.Warn("clearing stored session token failed", "error", err)
	}

	m.shutdown()
	m.actor = model.Actor{}
	m.client.SetToken("")

	width, height := 80, 24
	if m.ready {
		width = m.layout.ContentWidth()
		height = m.layout.ContentHeight()
	}
	m.loginView = login.New(m.client, width, height)
	m.currentView = ViewLogin
	return m, m.loginView.Init()
}

// openCounterpartID returns the counterpart of whichever chat surface the
// role uses, zero when none is open.
func (m Model) openCounterpartID() int {
	if m.actor.Role == model.RoleCoordinador {
		return m.managerView.OpenCounterpartID()
	}
	return m.chatView.CounterpartID()
}

// reloadOpenThread re-reads the open thread from the merge store.
func (m Model) reloadOpenThread() tea.Cmd {
	if m.actor.Role == model.RoleCoordinador {
		return m.managerView.ReloadThreadFromLocal()
	}
	return m.chatView.ReloadFromLocal()
}

// fetchReturnedCount fetches the suppressed returned-incidents badge.
func (m Model) fetchReturnedCount() tea.Cmd {
	if m.actor.Role != model.RoleTecnico {
		return nil
	}
	suppressor := m.suppressor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
		defer cancel()

		count, err := suppressor.Count(ctx)
		return returnedCountMsg{count: count, err: err}
	}
}

// handleKeys processes global key input and view switching.
func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c always quits, tearing every component down.
	if key.Matches(msg, m.keys.Quit) {
		m.shutdown()
		return m, tea.Quit
	}

	if m.currentView == ViewLogin {
		var cmd tea.Cmd
		m.loginView, cmd = m.loginView.Update(msg)
		return m, cmd
	}

	// The escalation modal captures all input while presenting.
	if m.alertModal.Active() {
		var cmd tea.Cmd
		m.alertModal, cmd = m.alertModal.Update(msg)
		return m, cmd
	}

	// Chat input needs raw keys; only esc escapes back to the dashboard.
	if m.currentView == ViewChat && m.actor.Role != model.RoleCoordinador {
		if key.Matches(msg, m.keys.Back) && m.actor.Role != model.RoleUsuario {
			m.currentView = ViewIncidents
			return m, nil
		}
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	}
	if m.currentView == ViewChat && m.actor.Role == model.RoleCoordinador {
		var cmd tea.Cmd
		m.managerView, cmd = m.managerView.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Notifications):
		if m.currentView == ViewNotifications {
			m.currentView = ViewIncidents
		} else {
			m.currentView = ViewNotifications
		}
		return m, nil
	case key.Matches(msg, m.keys.Chat):
		m.currentView = ViewChat
		m.chatUnread = 0
		var cmds []tea.Cmd
		if m.actor.Role == model.RoleCoordinador {
			cmds = append(cmds, m.managerView.RefreshDirectory())
		} else {
			cmds = append(cmds, m.chatView.Focus())
		}
		if m.pushBroken {
			// Reconnect on navigation back into the chat surface.
			m.push.Close()
			cmds = append(cmds, m.connectPush())
		}
		return m, tea.Batch(cmds...)
	case key.Matches(msg, m.keys.Returned):
		if m.actor.Role != model.RoleTecnico {
			return m, nil
		}
		m.currentView = ViewReturned
		return m, tea.Batch(m.returnedLst.Load(), m.markReturnedViewed())
	case key.Matches(msg, m.keys.Back):
		if m.currentView != ViewIncidents {
			m.currentView = ViewIncidents
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// markReturnedViewed persists the suppression flag for the badge.
func (m Model) markReturnedViewed() tea.Cmd {
	suppressor := m.suppressor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
		defer cancel()
		return viewedMsg{err: suppressor.MarkAsViewed(ctx)}
	}
}

// updateActiveView forwards a message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewIncidents:
		m.incidents, cmd = m.incidents.Update(msg)
	case ViewReturned:
		m.returnedLst, cmd = m.returnedLst.Update(msg)
	case ViewNotifications:
		m.notifView, cmd = m.notifView.Update(msg)
	case ViewChat:
		if m.actor.Role == model.RoleCoordinador {
			m.managerView, cmd = m.managerView.Update(msg)
		} else {
			m.chatView, cmd = m.chatView.Update(msg)
		}
	}

	return m, cmd
}

// shutdown stops every polling component and closes the push channel.
func (m *Model) shutdown() {
	if m.poller != nil {
		m.poller.Stop()
	}
	if m.engine != nil {
		m.engine.Stop()
	}
	if m.banner != nil {
		m.banner.Stop()
	}
	if m.push != nil {
		m.push.Close()
	}
}

// View renders the full frame: header with badges, the passive alert
// banner, the active view (or the escalation modal), and the status bar.
func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}

	if m.currentView == ViewLogin {
		return m.loginView.View()
	}

	header := m.layout.RenderHeader(
		m.title(),
		m.dispatcherUnread(),
		m.chatUnread,
	)
	banner := m.layout.RenderBanner(m.alertUnread)

	var content string
	if m.alertModal.Active() {
		content = m.layout.Overlay(m.alertModal.View())
	} else {
		switch m.currentView {
		case ViewIncidents:
			content = m.incidents.View()
		case ViewReturned:
			content = m.returnedLst.View()
		case ViewNotifications:
			content = m.notifView.View()
		case ViewChat:
			if m.actor.Role == model.RoleCoordinador {
				content = m.managerView.View()
			} else {
				content = m.chatView.View()
			}
		}
	}

	statusBar := m.layout.RenderStatusBar(m.statusHints())
	return m.layout.RenderWithFrame(header, banner, content, statusBar)
}

// title composes the header title for the signed-in actor.
func (m Model) title() string {
	t := "Mesa de Ayuda · " + m.actor.Name
	if m.actor.Role.Supervisory() && m.supervisionCount > 0 {
		t += " · supervisión: " + strconv.Itoa(m.supervisionCount)
	}
	if m.actor.Role == model.RoleTecnico && m.returnedCount > 0 {
		t += " · devueltos: " + strconv.Itoa(m.returnedCount)
	}
	return t
}

// dispatcherUnread returns the in-app notification unread count.
func (m Model) dispatcherUnread() int {
	if m.dispatcher == nil {
		return 0
	}
	return m.dispatcher.UnreadCount()
}

// statusHints returns the keyboard hints for the current view.
func (m Model) statusHints() string {
	switch m.currentView {
	case ViewChat:
		return "enter enviar · esc volver · ctrl+c salir"
	case ViewNotifications:
		return "m leída · M todas · x limpiar · s sonido · esc volver"
	default:
		return "n notificaciones · c chat · v devueltos · r actualizar · ctrl+c salir"
	}
}
