package tui

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tools.zach/dev/dispresence/internal/discord"
	"tools.zach/dev/dispresence/internal/presence"
	"tools.zach/dev/dispresence/internal/worker"
)

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// nopConn accepts everything, so a started worker settles into Updating.
type nopConn struct{}

func (nopConn) Connect() error                       { return nil }
func (nopConn) SetActivity(*discord.Activity) error { return nil }
func (nopConn) Reconnect() error                     { return nil }
func (nopConn) Close() error                         { return nil }

// recorder is a StartFunc that keeps every config it was asked to run.
type recorder struct {
	started []*presence.Config
}

func (r *recorder) start(cfg *presence.Config) *worker.Handle {
	r.started = append(r.started, cfg)
	return worker.Start(nopConn{}, cfg, worker.Options{
		Clock:  clockwork.NewFakeClock(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func sampleConfig() *presence.Config {
	return &presence.Config{
		AppID:      "1106263212311470091",
		Details:    "Raiding",
		State:      "Floor 3",
		Party:      &presence.Party{Current: 3, Max: 5},
		LargeImage: &presence.Image{Key: "castle", Text: "The Keep"},
	}
}

func writePresence(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raid.json")
	require.NoError(t, presence.Save(path, sampleConfig()))
	return path
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

func stopAndWait(t *testing.T, h *worker.Handle) {
	t.Helper()
	h.Stop()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

// ///////////////////////////////////////////////
// Construction Tests
// ///////////////////////////////////////////////

func TestNew_LoadsPath(t *testing.T) {
	path := writePresence(t)
	m := New((&recorder{}).start, path)

	assert.Empty(t, m.banner)
	assert.Equal(t, "1106263212311470091", m.value(fieldAppID))
	assert.Equal(t, "Raiding", m.value(fieldDetails))
	assert.Equal(t, "3", m.value(fieldPartyCurrent))
	assert.Equal(t, "5", m.value(fieldPartyMax))
	assert.Equal(t, "castle", m.value(fieldLargeKey))
	assert.Equal(t, "", m.value(fieldSmallKey))
	assert.True(t, m.canApply(), "a freshly loaded file can be applied")
}

func TestNew_BadPathShowsBanner(t *testing.T) {
	m := New((&recorder{}).start, filepath.Join(t.TempDir(), "missing.json"))

	assert.Contains(t, m.banner, "missing.json")
	assert.Nil(t, m.saved)
	assert.False(t, m.canApply())
}

// ///////////////////////////////////////////////
// Focus Tests
// ///////////////////////////////////////////////

func TestFocusWraps(t *testing.T) {
	m := New((&recorder{}).start, "")
	require.Equal(t, fieldPath, m.focus)

	m, _ = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, fieldSmallText, m.focus)

	m, _ = press(t, m, tea.KeyTab)
	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, fieldAppID, m.focus)
	assert.True(t, m.inputs[fieldAppID].Focused())
	assert.False(t, m.inputs[fieldPath].Focused())
}

func TestTypingGoesToFocusedField(t *testing.T) {
	m := New((&recorder{}).start, "")
	m, _ = press(t, m, tea.KeyTab)
	m = typeText(t, m, "42")

	assert.Equal(t, "42", m.value(fieldAppID))
	assert.Equal(t, "", m.value(fieldPath))
}

// ///////////////////////////////////////////////
// Load / Save Tests
// ///////////////////////////////////////////////

func TestLoadKey(t *testing.T) {
	path := writePresence(t)
	m := New((&recorder{}).start, "")
	m = typeText(t, m, path)

	m, _ = press(t, m, tea.KeyCtrlO)

	assert.Empty(t, m.banner)
	assert.Equal(t, "loaded raid.json", m.status)
	assert.True(t, sampleConfig().Equal(m.saved))
}

func TestLoadEmptyPath(t *testing.T) {
	m := New((&recorder{}).start, "")
	m, _ = press(t, m, tea.KeyCtrlO)
	assert.NotEmpty(t, m.banner)
}

func TestLoadDecodeErrorKeepsDraft(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"app_id":`), 0o644))

	m := New((&recorder{}).start, "")
	m, _ = press(t, m, tea.KeyTab)
	m = typeText(t, m, "77")
	m, _ = press(t, m, tea.KeyShiftTab)
	m = typeText(t, m, path)
	m, _ = press(t, m, tea.KeyCtrlO)

	assert.Contains(t, m.banner, "broken.json")
	assert.Equal(t, "77", m.value(fieldAppID))
}

func TestSaveDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	m := New((&recorder{}).start, "")
	m.fill(sampleConfig())
	m, _ = press(t, m, tea.KeyCtrlS)

	require.Empty(t, m.banner)
	assert.Equal(t, "config.json", m.value(fieldPath))

	got, err := presence.Load(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.True(t, sampleConfig().Equal(got))
	assert.True(t, m.canApply(), "saving enables apply")
}

func TestSaveInvalidShowsBanner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	m := New((&recorder{}).start, "")
	m.inputs[fieldPath].SetValue(path)
	m.inputs[fieldAppID].SetValue("not-a-snowflake")

	m, _ = press(t, m, tea.KeyCtrlS)

	assert.NotEmpty(t, m.banner)
	assert.Nil(t, m.saved)
	assert.NoFileExists(t, path)
}

func TestSaveMultibyteTextAtFieldLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	m := New((&recorder{}).start, "")
	m.fill(sampleConfig())
	m.inputs[fieldPath].SetValue(path)
	// The field keeps the first MaxTextLen characters, which is more than
	// MaxTextLen bytes.
	m.inputs[fieldDetails].SetValue(strings.Repeat("é", presence.MaxTextLen+20))

	m, _ = press(t, m, tea.KeyCtrlS)

	require.Empty(t, m.banner)
	got, err := presence.Load(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", presence.MaxTextLen), got.Details)
}

func TestSaveBadPartyShowsBanner(t *testing.T) {
	m := New((&recorder{}).start, "")
	m.fill(sampleConfig())
	m.inputs[fieldPartyCurrent].SetValue("x")

	m, _ = press(t, m, tea.KeyCtrlS)

	assert.Contains(t, m.banner, "party")
}

// ///////////////////////////////////////////////
// Draft Tests
// ///////////////////////////////////////////////

func TestDraftSentinels(t *testing.T) {
	tests := []struct {
		name           string
		current, max   string
		largeKey, text string
		wantParty      bool
		wantLarge      bool
	}{
		{"empty", "", "", "", "", false, false},
		{"zero party", "0", "0", "none", "none", false, false},
		{"solo party", "1", "1", "", "", false, false},
		{"real values", "2", "4", "castle", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New((&recorder{}).start, "")
			m.inputs[fieldPartyCurrent].SetValue(tt.current)
			m.inputs[fieldPartyMax].SetValue(tt.max)
			m.inputs[fieldLargeKey].SetValue(tt.largeKey)
			m.inputs[fieldLargeText].SetValue(tt.text)

			cfg, err := m.draft()
			require.NoError(t, err)
			assert.Equal(t, tt.wantParty, cfg.Party != nil)
			assert.Equal(t, tt.wantLarge, cfg.LargeImage != nil)
		})
	}
}

func TestEditDisablesApply(t *testing.T) {
	m := New((&recorder{}).start, writePresence(t))
	require.True(t, m.canApply())

	m.inputs[fieldState].SetValue("Floor 4")
	assert.False(t, m.canApply())

	m.inputs[fieldState].SetValue("Floor 3")
	assert.True(t, m.canApply(), "reverting the edit re-enables apply")
}

// ///////////////////////////////////////////////
// Apply / Stop Tests
// ///////////////////////////////////////////////

func TestApplyDisabledWithoutFile(t *testing.T) {
	rec := &recorder{}
	m := New(rec.start, "")
	m.fill(sampleConfig())

	m, cmd := press(t, m, tea.KeyCtrlA)

	assert.Nil(t, cmd)
	assert.Nil(t, m.Handle())
	assert.Empty(t, rec.started)
	assert.Equal(t, errNothingToApply.Error(), m.banner)
}

func TestApplyStopCycle(t *testing.T) {
	rec := &recorder{}
	m := New(rec.start, writePresence(t))

	m, cmd := press(t, m, tea.KeyCtrlA)
	require.NotNil(t, m.Handle())
	require.NotNil(t, cmd, "apply schedules a liveness tick")
	require.Len(t, rec.started, 1)
	assert.True(t, sampleConfig().Equal(rec.started[0]))
	assert.Contains(t, m.View(), "stop")

	// A tick while the worker runs keeps polling.
	next, cmd := m.Update(tickMsg{})
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.NotNil(t, m.Handle())

	h := m.Handle()
	m, _ = press(t, m, tea.KeyCtrlA)
	assert.True(t, m.stopping)
	assert.Contains(t, m.View(), "stopping")

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	next, cmd = m.Update(tickMsg{})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Nil(t, m.Handle())
	assert.False(t, m.stopping)
	assert.Equal(t, "stopped", m.status)
	assert.True(t, m.canApply(), "apply is offered again once stopped")
}

func TestApplyWhileStoppingStartsNothing(t *testing.T) {
	rec := &recorder{}
	m := New(rec.start, writePresence(t))
	m, _ = press(t, m, tea.KeyCtrlA)
	t.Cleanup(func() { stopAndWait(t, m.Handle()) })

	m, _ = press(t, m, tea.KeyCtrlA)
	m, _ = press(t, m, tea.KeyCtrlA)

	assert.Len(t, rec.started, 1)
}

func TestQuitStopsWorker(t *testing.T) {
	m := New((&recorder{}).start, writePresence(t))
	m, _ = press(t, m, tea.KeyCtrlA)
	h := m.Handle()
	require.NotNil(t, h)

	_, cmd := press(t, m, tea.KeyCtrlQ)
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("quit did not stop the worker")
	}
}

func TestQuitWithoutWorker(t *testing.T) {
	m := New((&recorder{}).start, "")
	_, cmd := press(t, m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

// ///////////////////////////////////////////////
// View Tests
// ///////////////////////////////////////////////

func TestView(t *testing.T) {
	m := New((&recorder{}).start, "")
	view := m.View()

	for _, label := range fieldLabels {
		assert.Contains(t, view, label)
	}
	assert.Contains(t, view, "load a presence file")
	assert.Contains(t, view, "apply")
}

func TestViewShowsBanner(t *testing.T) {
	m := New((&recorder{}).start, "")
	m, _ = press(t, m, tea.KeyCtrlO)

	view := m.View()
	assert.True(t, strings.Contains(view, "enter the path"), "banner missing from view: %q", view)
}

func TestViewShowsLoadedFile(t *testing.T) {
	m := New((&recorder{}).start, writePresence(t))
	assert.Contains(t, m.View(), "raid.json")
}
