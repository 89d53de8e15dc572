package gateway

import (
	"context"
	"fmt"
	"strings"

	"dialogue-tutor/work-flows/managers"
	"dialogue-tutor/work-flows/models"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(2)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	tutorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			Bold(true)

	situationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("180")).
			Italic(true)

	feedbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	correctionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// exchangeDoneMsg reports the end of a controller exchange run in a tea.Cmd.
type exchangeDoneMsg struct {
	kind managers.ExchangeKind
	err  error
}

// ChatTUI is the full-screen front-end. All session state lives in the
// controller; the model only keeps widget state.
type ChatTUI struct {
	ctx        context.Context
	controller *managers.DialogueController
	scenarios  []managers.ScenarioOption

	dispatched managers.ExchangeKind
	ready      bool
	quitting   bool
	width      int
	height     int

	spinner  spinner.Model
	input    textinput.Model
	viewport viewport.Model
}

func NewChatTUI(ctx context.Context, controller *managers.DialogueController, scenarios []managers.ScenarioOption) ChatTUI {
	if len(scenarios) == 0 {
		scenarios = managers.DefaultScenarioOptions()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "用中文回答..."
	ti.CharLimit = 300
	ti.Width = 60

	return ChatTUI{
		ctx:        ctx,
		controller: controller,
		scenarios:  scenarios,
		spinner:    s,
		input:      ti,
		viewport:   viewport.New(76, 16),
	}
}

func (m ChatTUI) view() managers.ViewModel {
	return managers.DeriveView(m.controller.Snapshot(), m.scenarios)
}

func (m ChatTUI) busy(vm managers.ViewModel) bool {
	return vm.Busy || m.dispatched != managers.ExchangeNone
}

func (m ChatTUI) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ChatTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		vm := m.view()
		if vm.Screen == managers.ScreenSelector {
			return m.updateSelector(msg, vm)
		}
		return m.updateDialogue(msg, vm)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		headerHeight := 6
		footerHeight := 5
		m.viewport = viewport.New(max(msg.Width-4, 20), max(msg.Height-headerHeight-footerHeight, 5))
		m.input.Width = max(msg.Width-8, 20)
		m.refreshTranscript()

	case exchangeDoneMsg:
		m.dispatched = managers.ExchangeNone
		// The controller already logged a failure and kept its state.
		m.input.SetValue(m.controller.Snapshot().Input)
		m.input.CursorEnd()
		m.refreshTranscript()
		if m.view().Screen == managers.ScreenDialogue {
			cmds = append(cmds, m.input.Focus())
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.busy(m.view()) {
			m.refreshTranscript()
		}
	}

	return m, tea.Batch(cmds...)
}

func (m ChatTUI) updateSelector(msg tea.KeyMsg, vm managers.ViewModel) (tea.Model, tea.Cmd) {
	if m.busy(vm) {
		return m, nil
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	// SelectScenario can only fail when busy or started; the selector screen
	// and the busy guard above rule out both.
	case "up", "k":
		if vm.SelectedIndex > 0 {
			_ = m.controller.SelectScenario(vm.Scenarios[vm.SelectedIndex-1].ID)
		}
	case "down", "j":
		if vm.SelectedIndex < len(vm.Scenarios)-1 {
			_ = m.controller.SelectScenario(vm.Scenarios[vm.SelectedIndex+1].ID)
		}
	case "p":
		m.controller.TogglePinyin()
	case "e":
		m.controller.ToggleEnglish()
	case "enter":
		if vm.CanStart {
			return m.dispatch(managers.ExchangeStart, func(ctx context.Context) error {
				return m.controller.StartDialogue(ctx, "")
			})
		}
	}
	return m, nil
}

func (m ChatTUI) updateDialogue(msg tea.KeyMsg, vm managers.ViewModel) (tea.Model, tea.Cmd) {
	if vm.Review != nil {
		switch msg.String() {
		case "esc", "enter":
			m.controller.DismissReview()
			m.refreshTranscript()
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+y":
		m.controller.TogglePinyin()
		m.refreshTranscript()
		return m, nil
	case "ctrl+t":
		m.controller.ToggleEnglish()
		m.refreshTranscript()
		return m, nil
	case "ctrl+n":
		m.controller.Reset()
		m.dispatched = managers.ExchangeNone
		m.input.SetValue("")
		m.input.Blur()
		m.refreshTranscript()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.busy(vm) {
		return m, nil
	}

	switch msg.String() {
	case "ctrl+r":
		if vm.CanReview {
			return m.dispatch(managers.ExchangeReview, m.controller.RequestReview)
		}
		return m, nil
	case "enter":
		if vm.CanSend {
			text := vm.Input
			return m.dispatch(managers.ExchangeRespond, func(ctx context.Context) error {
				return m.controller.SendResponse(ctx, text)
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.controller.SetInput(m.input.Value())
	return m, cmd
}

// dispatch runs one controller exchange off the UI goroutine.
func (m ChatTUI) dispatch(kind managers.ExchangeKind, run func(context.Context) error) (tea.Model, tea.Cmd) {
	m.dispatched = kind
	m.input.Blur()
	ctx := m.ctx
	exchange := func() tea.Msg {
		return exchangeDoneMsg{kind: kind, err: run(ctx)}
	}
	return m, tea.Batch(exchange, m.spinner.Tick)
}

func (m *ChatTUI) refreshTranscript() {
	vm := m.view()
	m.viewport.SetContent(m.renderTurns(vm))
	m.viewport.GotoBottom()
}

func (m ChatTUI) View() string {
	if m.quitting {
		return "再见!\n"
	}
	if !m.ready {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}

	vm := m.view()
	if vm.Screen == managers.ScreenSelector {
		return m.viewSelector(vm)
	}
	if vm.Review != nil {
		return m.viewReview(vm)
	}
	return m.viewDialogue(vm)
}

func (m ChatTUI) viewSelector(vm managers.ViewModel) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🀄 Chinese Dialogue Tutor") + "\n\n")
	b.WriteString(infoStyle.Render("  Choose a scenario") + "\n\n")

	for i, opt := range vm.Scenarios {
		cursor := "  "
		style := infoStyle
		if i == vm.SelectedIndex {
			cursor = "▶ "
			style = activeStyle
		}
		line := fmt.Sprintf("%s%-12s %s", cursor, opt.Label, opt.Description)
		b.WriteString("  " + style.Render(line) + "\n")
	}

	b.WriteString("\n" + infoStyle.Render(fmt.Sprintf("  [%s] pinyin   [%s] english",
		check(vm.Display.ShowPinyin), check(vm.Display.ShowEnglish))) + "\n")

	if m.busy(vm) {
		b.WriteString(fmt.Sprintf("\n  %s %s\n", m.spinner.View(), busyText(vm, m.dispatched)))
	}

	b.WriteString(helpStyle.Render("  ↑/↓: scenario │ p: pinyin │ e: english │ enter: start │ ctrl+c: quit"))
	return b.String()
}

func (m ChatTUI) viewDialogue(vm managers.ViewModel) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🀄 "+scenarioLabel(vm)) + "\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("  pinyin %s │ english %s",
		onOff(vm.Display.ShowPinyin), onOff(vm.Display.ShowEnglish))) + "\n\n")

	b.WriteString(boxStyle.Width(max(m.width-4, 20)).Render(m.viewport.View()) + "\n")

	if vm.Feedback != nil {
		b.WriteString(renderFeedback(vm.Feedback) + "\n")
	}

	if m.busy(vm) {
		b.WriteString(fmt.Sprintf("\n  %s %s\n", m.spinner.View(), busyText(vm, m.dispatched)))
	} else {
		b.WriteString("\n  " + m.input.View() + "\n")
	}

	help := "enter: send │ ctrl+y: pinyin │ ctrl+t: english │ ctrl+n: new"
	if vm.ShowReviewAction {
		if vm.CanReview {
			help += " │ ctrl+r: review"
		} else {
			help += " │ " + infoStyle.Faint(true).Render("review after your first reply")
		}
	}
	b.WriteString(helpStyle.Render("  " + help))
	return b.String()
}

func (m ChatTUI) viewReview(vm managers.ViewModel) string {
	var b strings.Builder
	r := vm.Review

	b.WriteString(titleStyle.Render("📊 Session review") + "\n\n")
	b.WriteString("  " + r.OverallFeedback + "\n\n")

	b.WriteString(activeStyle.Render("  Grammar") + "\n")
	if r.NoCorrections() {
		b.WriteString(infoStyle.Render("  No corrections needed") + "\n")
	}
	for _, g := range r.Grammar {
		b.WriteString("  " + correctionStyle.Render("✗ "+g.Original) + "\n")
		b.WriteString("  " + activeStyle.Render("✓ "+g.Correction) + "\n")
		b.WriteString("    " + g.Explanation + "\n")
		if g.Example != "" {
			b.WriteString(infoStyle.Render("    e.g. "+g.Example) + "\n")
		}
	}

	b.WriteString("\n" + activeStyle.Render("  Vocabulary") + "\n")
	if r.NoVocabulary() {
		b.WriteString(infoStyle.Render("  No vocabulary to review") + "\n")
	}
	for _, v := range r.Vocabulary {
		b.WriteString(fmt.Sprintf("  • %s (%s) %s\n", v.Word, v.Pinyin, v.Meaning))
		if v.UsageNote != "" {
			b.WriteString(infoStyle.Render("    "+v.UsageNote) + "\n")
		}
	}

	b.WriteString(helpStyle.Render("  esc/enter: close"))
	return boxStyle.Render(b.String())
}

func (m ChatTUI) renderTurns(vm managers.ViewModel) string {
	width := max(m.viewport.Width-2, 20)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, turn := range vm.Turns {
		if turn.ShowSituation {
			b.WriteString(situationStyle.Width(width).Render("📍 "+turn.SituationZh) + "\n")
			if turn.ShowSituationEn {
				b.WriteString(infoStyle.Width(width).Render("   "+turn.SituationEn) + "\n")
			}
			b.WriteString("\n")
		}

		if turn.Role == models.RoleUser {
			b.WriteString(wrap.Render(activeStyle.Render("你: ")+turn.Text) + "\n\n")
			continue
		}

		b.WriteString(wrap.Render(tutorStyle.Render("老师: ")+turn.Text) + "\n")
		if turn.ShowPinyin {
			b.WriteString(infoStyle.Width(width).Render("      "+turn.Pinyin) + "\n")
		}
		if turn.ShowEnglish {
			b.WriteString(infoStyle.Width(width).Render("      "+turn.English) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderFeedback(fb *managers.FeedbackView) string {
	var parts []string
	if fb.Evaluation != "" {
		parts = append(parts, "💡 "+fb.Evaluation)
	}
	if len(fb.SuggestedWords) > 0 {
		parts = append(parts, "📝 "+strings.Join(fb.SuggestedWords, "、"))
	}
	return feedbackStyle.Render("  " + strings.Join(parts, "\n  "))
}

func busyText(vm managers.ViewModel, dispatched managers.ExchangeKind) string {
	if vm.BusyLabel != "" {
		return vm.BusyLabel
	}
	switch dispatched {
	case managers.ExchangeStart:
		return "Starting..."
	case managers.ExchangeReview:
		return "Reviewing..."
	default:
		return "Sending..."
	}
}

func scenarioLabel(vm managers.ViewModel) string {
	if vm.SelectedIndex >= 0 && vm.SelectedIndex < len(vm.Scenarios) {
		return vm.Scenarios[vm.SelectedIndex].Label
	}
	return string(vm.SelectedScenario)
}

func check(on bool) string {
	if on {
		return "x"
	}
	return " "
}

// RunTUI starts the full-screen front-end and blocks until it exits.
func RunTUI(ctx context.Context, controller *managers.DialogueController, scenarios []managers.ScenarioOption) error {
	p := tea.NewProgram(NewChatTUI(ctx, controller, scenarios), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
