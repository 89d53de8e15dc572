package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dialogue-tutor/utils"
	"dialogue-tutor/work-flows/client"
	"dialogue-tutor/work-flows/managers"
	"dialogue-tutor/work-flows/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTutor struct {
	mu          sync.Mutex
	lastStart   models.StartDialogueRequest
	failRespond bool
}

func (st *stubTutor) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch strings.TrimPrefix(r.URL.Path, "/api") {
	case client.EndpointStartDialogue:
		var req models.StartDialogueRequest
		json.NewDecoder(r.Body).Decode(&req)
		st.mu.Lock()
		st.lastStart = req
		st.mu.Unlock()
		w.Write([]byte(`{"situation_zh":"你在商场","situation_en":"You are at the mall","initial_line_zh":"欢迎光临","initial_line_pinyin":"huān yíng guāng lín","initial_line_en":"Welcome"}`))

	case client.EndpointRespond:
		st.mu.Lock()
		fail := st.failRespond
		st.mu.Unlock()
		if fail {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"next_line_zh":"你想买什么？","next_line_pinyin":"nǐ xiǎng mǎi shén me?","next_line_en":"What do you want to buy?","evaluation":"自然","suggested_words":["衣服"]}`))

	case client.EndpointReview:
		w.Write([]byte(`{"overall_feedback":"不错","grammar_feedback":[],"vocabulary_review":[{"word":"衣服","pinyin":"yī fu","meaning":"clothes","usage_note":"general word"}]}`))

	default:
		http.NotFound(w, r)
	}
}

func (st *stubTutor) startRequest() models.StartDialogueRequest {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastStart
}

func newTestController(t *testing.T, opts ...managers.ControllerOption) (*managers.DialogueController, *stubTutor) {
	t.Helper()
	st := &stubTutor{}
	server := httptest.NewServer(http.HandlerFunc(st.serve))
	t.Cleanup(server.Close)
	return managers.NewDialogueController(client.NewTutorClient(server.URL+"/api"), opts...), st
}

func newTestConsole(t *testing.T, ctrl *managers.DialogueController, input string) (*ConsoleChat, *bytes.Buffer, string) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	var global bytes.Buffer
	utils.SetOutput(&global)
	t.Cleanup(func() {
		utils.SetOutput(nil)
		assert.Empty(t, global.String(), "console output must go to the injected writer")
	})

	dir := t.TempDir()
	return NewConsoleChat(ctrl, WithIO(strings.NewReader(input), &out), WithExportDir(dir)), &out, dir
}

func TestConsoleChatFullSession(t *testing.T) {
	ctrl, st := newTestController(t)
	input := "2\n\n我想买衣服\n/review\n/vocab\n/export\n/quit\n"
	cc, out, dir := newTestConsole(t, ctrl, input)

	require.NoError(t, cc.Run(context.Background()))

	assert.Equal(t, models.ScenarioShopping, st.startRequest().Scenario)
	text := out.String()
	assert.Contains(t, text, "📍 你在商场")
	assert.Contains(t, text, "老师: 欢迎光临")
	assert.Contains(t, text, "老师: 你想买什么？")
	assert.NotContains(t, text, "huān yíng", "pinyin is off by default")
	assert.Contains(t, text, "No corrections needed")
	assert.Contains(t, text, "衣服 (yī fu) clothes")
	assert.Contains(t, text, "✓ Session exported to ")
	assert.Contains(t, text, "✓ 1 words exported to ")

	tsv, err := filepath.Glob(filepath.Join(dir, "vocab_*.tsv"))
	require.NoError(t, err)
	require.Len(t, tsv, 1)
	raw, err := os.ReadFile(tsv[0])
	require.NoError(t, err)
	assert.Equal(t, "衣服\tyī fu\tclothes\tgeneral word\n", string(raw))

	sessions, err := filepath.Glob(filepath.Join(dir, "session_*.json"))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	raw, err = os.ReadFile(sessions[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"content_zh": "我想买衣服"`)
	assert.Contains(t, string(raw), `"export_type": "session"`)
}

func TestConsoleChatTranslationsWhenToggled(t *testing.T) {
	ctrl, _ := newTestController(t)
	cc, out, _ := newTestConsole(t, ctrl, "/pinyin\n/english\n\n/quit\n")

	require.NoError(t, cc.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "huān yíng guāng lín")
	assert.Contains(t, text, "Welcome")
	assert.Contains(t, text, "You are at the mall")
}

func TestConsoleChatFailureLeavesTranscript(t *testing.T) {
	ctrl, st := newTestController(t)
	st.mu.Lock()
	st.failRespond = true
	st.mu.Unlock()
	cc, out, _ := newTestConsole(t, ctrl, "\n你好\n/quit\n")

	require.NoError(t, cc.Run(context.Background()))

	snap := ctrl.Snapshot()
	assert.Len(t, snap.Turns, 1)
	assert.Equal(t, "你好", snap.Input)
	assert.NotContains(t, out.String(), "✗")
}

func TestConsoleChatReviewTooEarly(t *testing.T) {
	ctrl, _ := newTestController(t)
	cc, out, _ := newTestConsole(t, ctrl, "\n/review\n/quit\n")

	require.NoError(t, cc.Run(context.Background()))

	assert.Contains(t, out.String(), "Reply at least once")
	assert.Nil(t, ctrl.Snapshot().Review)
}

func TestConsoleChatNewReturnsToSelector(t *testing.T) {
	ctrl, _ := newTestController(t)
	cc, _, _ := newTestConsole(t, ctrl, "\n/new\n3\n")

	require.NoError(t, cc.Run(context.Background()))

	snap := ctrl.Snapshot()
	assert.False(t, snap.Started())
	assert.Equal(t, models.ScenarioTravel, snap.Scenario)
}

func TestConsoleChatStatsAndHistory(t *testing.T) {
	ctrl, _ := newTestController(t)
	cc, out, _ := newTestConsole(t, ctrl, "\n你好\n/stats\n/history\n/quit\n")

	require.NoError(t, cc.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "• Total turns: 3")
	assert.Contains(t, text, "• Your replies: 1")
	assert.Contains(t, text, "📜 Dialogue so far:")
}

func TestConsoleChatFeedbackShownWithCapability(t *testing.T) {
	ctrl, _ := newTestController(t, managers.WithCapabilities(models.Capabilities{PerTurnFeedback: true}))
	cc, out, _ := newTestConsole(t, ctrl, "\n你好\n/quit\n")

	require.NoError(t, cc.Run(context.Background()))

	assert.Contains(t, out.String(), "💡 自然")
	assert.Contains(t, out.String(), "📝 Try: 衣服")
}

// collect runs cmd and any batched commands, returning their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// press sends a key and, when it dispatched an exchange, feeds the result back.
func press(m tea.Model, key tea.KeyMsg) tea.Model {
	m, cmd := m.Update(key)
	if cmd == nil || m.(ChatTUI).dispatched == managers.ExchangeNone {
		return m
	}
	for _, msg := range collect(cmd) {
		if done, ok := msg.(exchangeDoneMsg); ok {
			m, _ = m.Update(done)
		}
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestTUI(t *testing.T, opts ...managers.ControllerOption) (tea.Model, *managers.DialogueController, *stubTutor) {
	ctrl, st := newTestController(t, opts...)
	var m tea.Model = NewChatTUI(context.Background(), ctrl, nil)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, ctrl, st
}

func TestChatTUISelectAndStart(t *testing.T) {
	m, ctrl, st := newTestTUI(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(m, runes("p"))
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	snap := ctrl.Snapshot()
	require.True(t, snap.Started())
	assert.Equal(t, models.ScenarioTravel, st.startRequest().Scenario)
	assert.True(t, snap.Display.ShowPinyin)
	assert.Contains(t, m.View(), "huān yíng guāng lín")
}

func TestChatTUISendAndReview(t *testing.T) {
	m, ctrl, _ := newTestTUI(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	m = press(m, runes("我想买衣服"))
	assert.Equal(t, "我想买衣服", ctrl.Snapshot().Input)

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	snap := ctrl.Snapshot()
	require.Len(t, snap.Turns, 3)
	assert.Equal(t, "", snap.Input)
	assert.Equal(t, "", m.(ChatTUI).input.Value())

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, ctrl.Snapshot().Review)
	assert.Contains(t, m.View(), "No corrections needed")

	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, ctrl.Snapshot().Review)
	assert.Len(t, ctrl.Snapshot().Turns, 3)
}

func TestChatTUIIgnoresInputWhilePending(t *testing.T) {
	m, ctrl, _ := newTestTUI(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(m, runes("你好"))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, managers.ExchangeRespond, m.(ChatTUI).dispatched)
	assert.Contains(t, m.View(), "Sending...")

	m, _ = m.Update(runes("x"))
	assert.Equal(t, "你好", m.(ChatTUI).input.Value())

	for _, msg := range collect(cmd) {
		if done, ok := msg.(exchangeDoneMsg); ok {
			m, _ = m.Update(done)
		}
	}
	assert.Len(t, ctrl.Snapshot().Turns, 3)
	assert.Equal(t, managers.ExchangeNone, m.(ChatTUI).dispatched)
}

func TestChatTUIReviewNeedsReply(t *testing.T) {
	m, ctrl, _ := newTestTUI(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Nil(t, ctrl.Snapshot().Review)
	assert.Contains(t, m.View(), "review after your first reply")
}

func TestChatTUINewSession(t *testing.T) {
	m, ctrl, _ := newTestTUI(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, ctrl.Snapshot().Started())

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.False(t, ctrl.Snapshot().Started())
	assert.Contains(t, m.View(), "Choose a scenario")
}

func TestChatTUISelectorStopsAtEnds(t *testing.T) {
	m, ctrl, _ := newTestTUI(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, models.ScenarioRestaurant, ctrl.Snapshot().Scenario)

	for i := 0; i < 6; i++ {
		m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, models.ScenarioWork, ctrl.Snapshot().Scenario)
	assert.Contains(t, m.View(), "▶ Work")
}
