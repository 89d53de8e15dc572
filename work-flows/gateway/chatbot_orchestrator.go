package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"dialogue-tutor/utils"
	"dialogue-tutor/work-flows/managers"
	"dialogue-tutor/work-flows/models"
	"dialogue-tutor/work-flows/services"

	"github.com/fatih/color"
)

// ConsoleChat is the line-mode front-end. It reads one line at a time and
// redraws from the controller snapshot after every action.
type ConsoleChat struct {
	controller *managers.DialogueController
	translator *services.Translator
	scenarios  []managers.ScenarioOption
	exportDir  string

	in  *bufio.Reader
	out io.Writer

	printed int
}

type ConsoleOption func(*ConsoleChat)

func WithTranslator(translator *services.Translator) ConsoleOption {
	return func(cc *ConsoleChat) {
		cc.translator = translator
	}
}

func WithScenarios(scenarios []managers.ScenarioOption) ConsoleOption {
	return func(cc *ConsoleChat) {
		if len(scenarios) > 0 {
			cc.scenarios = scenarios
		}
	}
}

func WithExportDir(dir string) ConsoleOption {
	return func(cc *ConsoleChat) {
		if dir != "" {
			cc.exportDir = dir
		}
	}
}

func WithIO(in io.Reader, out io.Writer) ConsoleOption {
	return func(cc *ConsoleChat) {
		cc.in = bufio.NewReader(in)
		cc.out = out
	}
}

func NewConsoleChat(controller *managers.DialogueController, opts ...ConsoleOption) *ConsoleChat {
	cc := &ConsoleChat{
		controller: controller,
		scenarios:  managers.DefaultScenarioOptions(),
		exportDir:  "exports",
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}
	for _, opt := range opts {
		opt(cc)
	}
	return cc
}

func (cc *ConsoleChat) view() managers.ViewModel {
	return managers.DeriveView(cc.controller.Snapshot(), cc.scenarios)
}

// Run drives the session until /quit, end of input or ctx is done.
func (cc *ConsoleChat) Run(ctx context.Context) error {
	cc.printWelcome()
	cc.showSelector()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		vm := cc.view()
		cc.printPrompt(vm)

		input, err := cc.in.ReadString('\n')
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line := strings.TrimSpace(input)
		switch {
		case strings.HasPrefix(line, "/"):
			if cc.handleCommand(ctx, line) {
				cc.endSession()
				return nil
			}
		case vm.Screen == managers.ScreenSelector:
			cc.handleSelector(ctx, line, eof)
		case line != "":
			cc.sendResponse(ctx, line)
		}

		if eof {
			cc.endSession()
			return nil
		}
	}
}

func (cc *ConsoleChat) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite)

	cyan.Fprintln(cc.out, "🀄 Chinese Dialogue Tutor")
	white.Fprintln(cc.out, "Practice a real-life conversation in Mandarin. Type /help for commands.")
}

func (cc *ConsoleChat) printPrompt(vm managers.ViewModel) {
	if vm.Screen == managers.ScreenSelector {
		fmt.Fprint(cc.out, "\n➤ Pick a scenario number, press Enter to start: ")
		return
	}
	fmt.Fprint(cc.out, "\n➤ 你: ")
}

func (cc *ConsoleChat) showSelector() {
	vm := cc.view()
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite)
	green := color.New(color.FgGreen)

	cyan.Fprintln(cc.out, "\n📋 Scenarios:")
	for i, opt := range vm.Scenarios {
		marker := " "
		if i == vm.SelectedIndex {
			marker = "●"
		}
		line := fmt.Sprintf("%s %d. %s", marker, i+1, opt.Label)
		if opt.Description != "" {
			line += " - " + opt.Description
		}
		if i == vm.SelectedIndex {
			green.Fprintln(cc.out, line)
		} else {
			white.Fprintln(cc.out, line)
		}
	}
	white.Fprintf(cc.out, "Pinyin: %s · English: %s (toggle with /pinyin and /english)\n",
		onOff(vm.Display.ShowPinyin), onOff(vm.Display.ShowEnglish))
}

func (cc *ConsoleChat) handleSelector(ctx context.Context, line string, eof bool) {
	vm := cc.view()

	if line == "" || strings.EqualFold(line, "start") {
		if eof && line == "" {
			return
		}
		cc.startDialogue(ctx)
		return
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(vm.Scenarios) {
		cc.warn(fmt.Sprintf("Please enter a number between 1 and %d.", len(vm.Scenarios)))
		return
	}
	if err := cc.controller.SelectScenario(vm.Scenarios[n-1].ID); err != nil {
		cc.warn(err.Error())
		return
	}
	cc.showSelector()
}

func (cc *ConsoleChat) startDialogue(ctx context.Context) {
	cc.printBusy(managers.ExchangeStart)
	if err := cc.controller.StartDialogue(ctx, ""); err != nil {
		// Exchange failures are logged by the controller; the screen stays as it was.
		cc.warnPrecondition(err)
		return
	}
	cc.printed = 0
	cc.renderNewTurns()
}

func (cc *ConsoleChat) sendResponse(ctx context.Context, text string) {
	cc.controller.SetInput(text)
	cc.printBusy(managers.ExchangeRespond)
	if err := cc.controller.SendResponse(ctx, text); err != nil {
		cc.warnPrecondition(err)
		return
	}
	cc.renderNewTurns()
	cc.renderFeedback()
}

func (cc *ConsoleChat) requestReview(ctx context.Context) {
	vm := cc.view()
	if !vm.ShowReviewAction {
		cc.warn("Review is not enabled.")
		return
	}
	if !vm.CanReview {
		cc.warn("Reply at least once before asking for a review.")
		return
	}

	cc.printBusy(managers.ExchangeReview)
	if err := cc.controller.RequestReview(ctx); err != nil {
		cc.warnPrecondition(err)
		return
	}
	cc.renderReview()
}

// warnPrecondition explains a rejected action. Failed exchanges are left silent.
func (cc *ConsoleChat) warnPrecondition(err error) {
	switch {
	case errors.Is(err, managers.ErrNotStarted):
		cc.warn("Start a dialogue first.")
	case errors.Is(err, managers.ErrReviewTooEarly):
		cc.warn("Reply at least once before asking for a review.")
	case errors.Is(err, managers.ErrReviewDisabled):
		cc.warn("Review is not enabled.")
	case errors.Is(err, managers.ErrScenarioLocked):
		cc.warn("The scenario cannot change during a dialogue. Use /new first.")
	}
}

func (cc *ConsoleChat) printBusy(kind managers.ExchangeKind) {
	faint := color.New(color.Faint)
	switch kind {
	case managers.ExchangeStart:
		faint.Fprintln(cc.out, "Starting...")
	case managers.ExchangeRespond:
		faint.Fprintln(cc.out, "Sending...")
	case managers.ExchangeReview:
		faint.Fprintln(cc.out, "Reviewing...")
	}
}

func (cc *ConsoleChat) renderNewTurns() {
	vm := cc.view()
	if cc.printed > len(vm.Turns) {
		cc.printed = 0
	}
	for _, turn := range vm.Turns[cc.printed:] {
		cc.renderTurn(turn)
	}
	cc.printed = len(vm.Turns)
}

func (cc *ConsoleChat) renderTurn(turn managers.TurnView) {
	cyan := color.New(color.FgCyan)
	blue := color.New(color.FgBlue, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	faint := color.New(color.Faint)

	if turn.ShowSituation {
		cyan.Fprintf(cc.out, "\n📍 %s\n", turn.SituationZh)
		if turn.ShowSituationEn {
			faint.Fprintf(cc.out, "   %s\n", turn.SituationEn)
		}
	}

	if turn.Role == models.RoleUser {
		green.Fprintf(cc.out, "你: %s\n", turn.Text)
		return
	}

	blue.Fprintf(cc.out, "老师: %s\n", turn.Text)
	if turn.ShowPinyin {
		faint.Fprintf(cc.out, "      %s\n", turn.Pinyin)
	}
	if turn.ShowEnglish {
		faint.Fprintf(cc.out, "      %s\n", turn.English)
	}
}

func (cc *ConsoleChat) renderFeedback() {
	vm := cc.view()
	if vm.Feedback == nil {
		return
	}
	yellow := color.New(color.FgYellow)
	if vm.Feedback.Evaluation != "" {
		yellow.Fprintf(cc.out, "💡 %s\n", vm.Feedback.Evaluation)
	}
	if len(vm.Feedback.SuggestedWords) > 0 {
		yellow.Fprintf(cc.out, "📝 Try: %s\n", strings.Join(vm.Feedback.SuggestedWords, "、"))
	}
}

func (cc *ConsoleChat) renderReview() {
	vm := cc.view()
	if vm.Review == nil {
		return
	}

	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	faint := color.New(color.Faint)

	cyan.Fprintln(cc.out, "\n📊 Session review")
	white.Fprintln(cc.out, vm.Review.OverallFeedback)

	cyan.Fprintln(cc.out, "\nGrammar:")
	if vm.Review.NoCorrections() {
		green.Fprintln(cc.out, "No corrections needed")
	}
	for _, g := range vm.Review.Grammar {
		red.Fprintf(cc.out, "✗ %s\n", g.Original)
		green.Fprintf(cc.out, "✓ %s\n", g.Correction)
		white.Fprintf(cc.out, "  %s\n", g.Explanation)
		if g.Example != "" {
			faint.Fprintf(cc.out, "  e.g. %s\n", g.Example)
		}
	}

	cyan.Fprintln(cc.out, "\nVocabulary:")
	if vm.Review.NoVocabulary() {
		white.Fprintln(cc.out, "No vocabulary to review")
	}
	for _, v := range vm.Review.Vocabulary {
		white.Fprintf(cc.out, "• %s (%s) %s\n", v.Word, v.Pinyin, v.Meaning)
		if v.UsageNote != "" {
			faint.Fprintf(cc.out, "  %s\n", v.UsageNote)
		}
	}
	faint.Fprintln(cc.out, "\n/close to hide the review, /vocab to export the words")
}

// handleCommand runs a slash command and reports whether the user asked to quit.
func (cc *ConsoleChat) handleCommand(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "/quit", "/exit":
		return true
	case "/help":
		cc.showHelp()
	case "/pinyin":
		on := cc.controller.TogglePinyin()
		cc.info("Pinyin " + onOff(on))
	case "/english":
		on := cc.controller.ToggleEnglish()
		cc.info("English " + onOff(on))
	case "/review":
		cc.requestReview(ctx)
	case "/close":
		cc.controller.DismissReview()
	case "/new":
		cc.controller.Reset()
		cc.printed = 0
		cc.showSelector()
	case "/history":
		cc.showHistory()
	case "/stats":
		cc.showStats()
	case "/export":
		cc.exportSession()
	case "/vocab":
		cc.exportVocabulary()
	case "/gloss":
		cc.gloss(arg)
	default:
		cc.warn(fmt.Sprintf("Unknown command %s. Type /help for commands.", cmd))
	}
	return false
}

func (cc *ConsoleChat) showHelp() {
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)

	yellow.Fprintln(cc.out, "\n📖 Available Commands:")
	white.Fprintln(cc.out, "• /pinyin - Show or hide pinyin")
	white.Fprintln(cc.out, "• /english - Show or hide English translations")
	white.Fprintln(cc.out, "• /review - Get a review of the session")
	white.Fprintln(cc.out, "• /close - Close the review")
	white.Fprintln(cc.out, "• /new - Go back to scenario selection")
	white.Fprintln(cc.out, "• /history - Show the whole dialogue")
	white.Fprintln(cc.out, "• /stats - Show session statistics")
	white.Fprintln(cc.out, "• /export - Save the session as JSON")
	white.Fprintln(cc.out, "• /vocab - Save reviewed vocabulary as an Anki deck (TSV)")
	white.Fprintln(cc.out, "• /gloss <text> - Translate text, or the last tutor line")
	white.Fprintln(cc.out, "• /quit - Exit")
	white.Fprintln(cc.out, "• Any other text - Your reply in Chinese")
}

func (cc *ConsoleChat) showHistory() {
	vm := cc.view()
	if vm.Screen != managers.ScreenDialogue {
		cc.warn("Start a dialogue first.")
		return
	}
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(cc.out, "\n📜 Dialogue so far:")
	for _, turn := range vm.Turns {
		cc.renderTurn(turn)
	}
	cc.printed = len(vm.Turns)
}

func (cc *ConsoleChat) showStats() {
	snap := cc.controller.Snapshot()
	stats := cc.controller.Transcript().Stats()

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)

	cyan.Fprintln(cc.out, "\n📊 Session Statistics:")
	green.Fprintf(cc.out, "• Scenario: %s\n", snap.Scenario)
	green.Fprintf(cc.out, "• State: %s\n", snap.State())
	green.Fprintf(cc.out, "• Total turns: %d\n", stats.TotalTurns)
	green.Fprintf(cc.out, "• Your replies: %d\n", stats.UserTurns)
	green.Fprintf(cc.out, "• Tutor lines: %d\n", stats.TutorTurns)
	if snap.SessionID != "" {
		green.Fprintf(cc.out, "• Session ID: %s\n", snap.SessionID)
	}
}

type sessionExport struct {
	Scenario models.Scenario          `json:"scenario"`
	Stats    services.TranscriptStats `json:"stats"`
	Turns    []models.Turn            `json:"turns"`
	Review   *models.Review           `json:"review,omitempty"`
}

func (cc *ConsoleChat) exportSession() {
	snap := cc.controller.Snapshot()
	if !snap.Started() {
		cc.warn("Start a dialogue first.")
		return
	}

	data := sessionExport{
		Scenario: snap.Scenario,
		Stats:    cc.controller.Transcript().Stats(),
		Turns:    snap.Turns,
		Review:   snap.Review,
	}
	path, err := utils.ExportToJSON(cc.exportDir, utils.ExportFileName("session", "json"), data, "session", snap.SessionID)
	if err != nil {
		cc.fail(fmt.Sprintf("Export failed: %v", err))
		return
	}
	cc.success("Session exported to " + path)
}

func (cc *ConsoleChat) exportVocabulary() {
	snap := cc.controller.Snapshot()
	if snap.Review == nil || len(snap.Review.VocabularyReview) == 0 {
		cc.warn("No reviewed vocabulary yet. Use /review first.")
		return
	}

	rows := make([][]string, 0, len(snap.Review.VocabularyReview))
	for _, v := range snap.Review.VocabularyReview {
		rows = append(rows, []string{v.Word, v.Pinyin, v.Meaning, v.UsageNote})
	}
	path, err := utils.ExportToTSV(cc.exportDir, utils.ExportFileName("vocab", "tsv"), rows)
	if err != nil {
		cc.fail(fmt.Sprintf("Export failed: %v", err))
		return
	}
	cc.success(fmt.Sprintf("%d words exported to %s", len(rows), path))
}

func (cc *ConsoleChat) gloss(text string) {
	if cc.translator == nil {
		cc.warn("Gloss is not available.")
		return
	}
	if text == "" {
		last, ok := cc.controller.Transcript().LastTutor()
		if !ok {
			cc.warn("Usage: /gloss <text>")
			return
		}
		text = last.Content
	}

	translated, err := cc.translator.Gloss(text)
	if err != nil {
		cc.fail(err.Error())
		return
	}
	magenta := color.New(color.FgMagenta)
	magenta.Fprintf(cc.out, "🔤 %s → %s\n", text, translated)
}

func (cc *ConsoleChat) endSession() {
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)

	stats := cc.controller.Transcript().Stats()
	green.Fprintln(cc.out, "\n🎉 谢谢! Thanks for practicing.")
	if stats.TotalTurns > 0 {
		cyan.Fprintf(cc.out, "📈 Replies sent: %d\n", stats.UserTurns)
	}
	green.Fprintln(cc.out, "👋 再见!")
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (cc *ConsoleChat) warn(message string)    { utils.FprintWarn(cc.out, message) }
func (cc *ConsoleChat) info(message string)    { utils.FprintInfo(cc.out, message) }
func (cc *ConsoleChat) fail(message string)    { utils.FprintError(cc.out, message) }
func (cc *ConsoleChat) success(message string) { utils.FprintSuccess(cc.out, message) }
