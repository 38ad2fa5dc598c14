// Package tui implements the interactive presence editor: a single form for
// one presence file with load, save, and an apply/stop toggle driving the
// background worker.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tools.zach/dev/dispresence/internal/paths"
	"tools.zach/dev/dispresence/internal/presence"
	"tools.zach/dev/dispresence/internal/worker"
)

// ///////////////////////////////////////////////
// Fields
// ///////////////////////////////////////////////

type field int

const (
	fieldPath field = iota
	fieldAppID
	fieldDetails
	fieldState
	fieldPartyCurrent
	fieldPartyMax
	fieldLargeKey
	fieldLargeText
	fieldSmallKey
	fieldSmallText
	fieldCount
)

var fieldLabels = [fieldCount]string{
	fieldPath:         "file",
	fieldAppID:        "application_id",
	fieldDetails:      "details",
	fieldState:        "state",
	fieldPartyCurrent: "party",
	fieldPartyMax:     "of",
	fieldLargeKey:     "large_image_key",
	fieldLargeText:    "large_image_text",
	fieldSmallKey:     "small_image_key",
	fieldSmallText:    "small_image_text",
}

// groups lays the fields out the way the form renders them.
var groups = [][]field{
	{fieldPath, fieldAppID},
	{fieldDetails, fieldState},
	{fieldPartyCurrent, fieldPartyMax},
	{fieldLargeKey, fieldLargeText},
	{fieldSmallKey, fieldSmallText},
}

// tickInterval is how often a running worker's liveness is polled.
const tickInterval = 250 * time.Millisecond

type tickMsg struct{}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// errNothingToApply is shown when apply is pressed while disabled.
var errNothingToApply = errors.New("save or load the presence before applying")

// ///////////////////////////////////////////////
// Model
// ///////////////////////////////////////////////

// StartFunc launches a worker broadcasting cfg.
type StartFunc func(cfg *presence.Config) *worker.Handle

// Model is the bubbletea model of the editor.
type Model struct {
	keys  KeyMap
	theme Theme
	help  help.Model

	inputs [fieldCount]textinput.Model
	focus  field

	// saved is the config last loaded from or saved to savedPath; nil
	// until either happens. Apply is offered only while the draft equals it.
	saved     *presence.Config
	savedPath string

	start    StartFunc
	handle   *worker.Handle
	stopping bool
	ticking  bool

	banner string
	status string
}

// New returns an editor that launches workers through start. A non-empty
// path is loaded immediately; failures show up in the banner.
func New(start StartFunc, path string) Model {
	m := Model{
		keys:  DefaultKeyMap,
		theme: DefaultTheme,
		help:  help.New(),
		start: start,
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Prompt = "> "
		in.CharLimit = presence.MaxTextLen
		m.inputs[i] = in
	}
	m.inputs[fieldPath].CharLimit = 0
	m.inputs[fieldPath].Placeholder = paths.DefaultPresenceFile
	m.inputs[fieldAppID].Placeholder = "1234567890"
	m.inputs[fieldPartyCurrent].CharLimit = 2
	m.inputs[fieldPartyMax].CharLimit = 2
	for _, f := range []field{fieldLargeKey, fieldLargeText, fieldSmallKey, fieldSmallText} {
		m.inputs[f].Placeholder = "none"
	}
	m.inputs[m.focus].Focus()

	if path != "" {
		m.inputs[fieldPath].SetValue(path)
		m.load()
	}
	return m
}

// Handle returns the running worker's handle, or nil.
func (m Model) Handle() *worker.Handle {
	return m.handle
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.handle.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			return m, m.setFocus(m.focus + 1)
		case key.Matches(msg, m.keys.Prev):
			return m, m.setFocus(m.focus - 1)
		case key.Matches(msg, m.keys.Load):
			m.load()
			return m, nil
		case key.Matches(msg, m.keys.Save):
			m.save()
			return m, nil
		case key.Matches(msg, m.keys.Apply):
			return m, m.toggle()
		}

	case tickMsg:
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// setFocus moves focus to f, wrapping at both ends.
func (m *Model) setFocus(f field) tea.Cmd {
	f = (f%fieldCount + fieldCount) % fieldCount
	m.inputs[m.focus].Blur()
	m.focus = f
	return m.inputs[f].Focus()
}

// ///////////////////////////////////////////////
// Draft
// ///////////////////////////////////////////////

func (m *Model) value(f field) string {
	return m.inputs[f].Value()
}

// draft builds a config from the form. Empty party fields count as zero and
// empty image pairs as no image.
func (m *Model) draft() (*presence.Config, error) {
	current, err := parseCount(m.value(fieldPartyCurrent))
	if err != nil {
		return nil, fmt.Errorf("party: %w", err)
	}
	maxSize, err := parseCount(m.value(fieldPartyMax))
	if err != nil {
		return nil, fmt.Errorf("party size: %w", err)
	}
	return &presence.Config{
		AppID:      strings.TrimSpace(m.value(fieldAppID)),
		Details:    m.value(fieldDetails),
		State:      m.value(fieldState),
		Party:      presence.PartyFromValues(current, maxSize),
		LargeImage: presence.ImageFromValues(m.value(fieldLargeKey), m.value(fieldLargeText)),
		SmallImage: presence.ImageFromValues(m.value(fieldSmallKey), m.value(fieldSmallText)),
	}, nil
}

func parseCount(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return uint32(n), nil
}

// fill replaces the form's presence fields with cfg.
func (m *Model) fill(cfg *presence.Config) {
	m.inputs[fieldAppID].SetValue(cfg.AppID)
	m.inputs[fieldDetails].SetValue(cfg.Details)
	m.inputs[fieldState].SetValue(cfg.State)

	current, maxSize := "", ""
	if cfg.Party != nil {
		current = strconv.FormatUint(uint64(cfg.Party.Current), 10)
		maxSize = strconv.FormatUint(uint64(cfg.Party.Max), 10)
	}
	m.inputs[fieldPartyCurrent].SetValue(current)
	m.inputs[fieldPartyMax].SetValue(maxSize)

	setImage := func(keyField, textField field, img *presence.Image) {
		k, t := "", ""
		if img != nil {
			k, t = img.Key, img.Text
		}
		m.inputs[keyField].SetValue(k)
		m.inputs[textField].SetValue(t)
	}
	setImage(fieldLargeKey, fieldLargeText, cfg.LargeImage)
	setImage(fieldSmallKey, fieldSmallText, cfg.SmallImage)
}

// ///////////////////////////////////////////////
// Actions
// ///////////////////////////////////////////////

func (m *Model) fail(err error) {
	slog.Warn("editor action failed", "error", err)
	m.banner = err.Error()
}

func (m *Model) succeed(status string) {
	m.banner = ""
	m.status = status
}

func (m *Model) load() {
	path := strings.TrimSpace(m.value(fieldPath))
	if path == "" {
		m.fail(errors.New("enter the path of a presence file to load"))
		return
	}
	cfg, err := presence.Load(path)
	if err != nil {
		m.fail(err)
		return
	}
	m.fill(cfg)
	m.saved = cfg
	m.savedPath = path
	m.succeed("loaded " + filepath.Base(path))
	slog.Info("presence loaded", "path", path)
}

// save writes the draft to the path field, or to the default file name in
// the working directory when the field is empty.
func (m *Model) save() {
	path := strings.TrimSpace(m.value(fieldPath))
	if path == "" {
		path = paths.DefaultPresenceFile
	}
	cfg, err := m.draft()
	if err != nil {
		m.fail(err)
		return
	}
	if err := presence.Save(path, cfg); err != nil {
		m.fail(err)
		return
	}
	m.inputs[fieldPath].SetValue(path)
	m.saved = cfg
	m.savedPath = path
	m.succeed("saved " + filepath.Base(path))
	slog.Info("presence saved", "path", path)
}

// canApply reports whether the apply action is enabled.
func (m *Model) canApply() bool {
	if m.handle != nil || m.saved == nil {
		return false
	}
	cfg, err := m.draft()
	return err == nil && cfg.Equal(m.saved)
}

// toggle starts a worker for the saved config, or stops the running one.
func (m *Model) toggle() tea.Cmd {
	if m.handle != nil {
		if !m.stopping {
			m.handle.Stop()
			m.stopping = true
			m.succeed("stopping")
		}
		return nil
	}
	if !m.canApply() {
		m.fail(errNothingToApply)
		return nil
	}

	m.handle = m.start(m.saved)
	m.succeed("broadcasting " + filepath.Base(m.savedPath))
	if m.ticking {
		return nil
	}
	m.ticking = true
	return scheduleTick()
}

// tick forgets the handle once its worker has finished and otherwise keeps
// polling.
func (m *Model) tick() tea.Cmd {
	m.ticking = false
	if m.handle == nil {
		return nil
	}
	select {
	case <-m.handle.Done():
		m.handle = nil
		m.stopping = false
		m.succeed("stopped")
		return nil
	default:
		m.ticking = true
		return scheduleTick()
	}
}

// ///////////////////////////////////////////////
// View
// ///////////////////////////////////////////////

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("dispresence"))
	b.WriteString("  ")
	if m.savedPath != "" {
		b.WriteString(m.theme.Label.Render("loaded: ") + m.theme.Loaded.Render(filepath.Base(m.savedPath)))
	} else {
		b.WriteString(m.theme.Label.Render("load a presence file (ctrl+o)"))
	}
	b.WriteString("\n")

	for _, group := range groups {
		rows := make([]string, 0, len(group))
		for _, f := range group {
			label := m.theme.Label
			if f == m.focus {
				label = m.theme.FocusedLabel
			}
			rows = append(rows, label.Render(fieldLabels[f]+":")+" "+m.inputs[f].View())
		}
		b.WriteString(m.theme.Group.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
		b.WriteString("\n")
	}

	b.WriteString(m.buttonView())
	if m.handle != nil {
		b.WriteString("  " + m.theme.Status.Render(m.handle.State().String()))
	}
	b.WriteString("\n")

	if m.banner != "" {
		b.WriteString(m.theme.Banner.Render(m.banner))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(m.theme.Status.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) buttonView() string {
	switch {
	case m.handle != nil && m.stopping:
		return m.theme.Disabled.Render("stopping")
	case m.handle != nil:
		return m.theme.StopButton.Render("stop")
	case m.canApply():
		return m.theme.ApplyButton.Render("apply")
	default:
		return m.theme.Disabled.Render("apply")
	}
}
