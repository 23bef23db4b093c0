package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hannysoft/mesa-client/internal/api"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/theme"
)

// loginTimeout bounds the authentication round trip.
const loginTimeout = 15 * time.Second

// ResultMsg carries the outcome of a login attempt.
type ResultMsg struct {
	Token string
	Actor model.Actor
	Err   error
}

// Model is the login form shown before any realtime surface starts.
type Model struct {
	client *api.Client
	form   *huh.Form

	loginErr error
	pending  bool
	width    int
	height   int
}

// New creates the login view.
func New(client *api.Client, width, height int) Model {
	return Model{
		client: client,
		form:   buildForm(),
		width:  width,
		height: height,
	}
}

// buildForm constructs the credentials form.
func buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("username").
				Title("Usuario").
				Validate(required("Usuario")),
			huh.NewInput().
				Key("password").
				Title("Contraseña").
				EchoMode(huh.EchoModePassword).
				Validate(required("Contraseña")),
		),
	).WithWidth(48)
}

// required validates that a form field is non-empty.
func required(field string) func(string) error {
	return func(value string) error {
		if value == "" {
			return errors.New(field + " es obligatorio")
		}
		return nil
	}
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles form input and submission.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if result, ok := msg.(ResultMsg); ok {
		m.pending = false
		if result.Err != nil {
			m.loginErr = result.Err
			m.form = buildForm()
			return m, m.form.Init()
		}
		return m, nil
	}

	if m.pending {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.pending = true
		client := m.client
		username := m.form.GetString("username")
		password := m.form.GetString("password")
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
			defer cancel()

			result, err := client.Login(ctx, username, password)
			if err != nil {
				return ResultMsg{Err: err}
			}
			return ResultMsg{Token: result.Token, Actor: result.Actor}
		}
	}

	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	content := theme.HeaderStyle.Render("Mesa de Ayuda") + "\n\n"

	if m.pending {
		content += theme.HelpStyle.Render("Iniciando sesión...")
	} else {
		content += m.form.View()
	}

	if m.loginErr != nil {
		content += "\n" + lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Render(fmt.Sprintf("Error: %v", m.loginErr))
	}

	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
