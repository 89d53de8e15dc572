package managers

import (
	"context"
	"strings"
	"sync"

	"dialogue-tutor/work-flows/client"
	"dialogue-tutor/work-flows/models"
	"dialogue-tutor/work-flows/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DialogueController owns the state of one practice session and runs the
// start, respond and review exchanges against the Tutoring Service. At most
// one exchange is outstanding at a time.
type DialogueController struct {
	mu sync.Mutex

	apiClient    client.TutorClient
	logger       *zap.Logger
	capabilities models.Capabilities

	sessionID  string
	scenario   models.Scenario
	phase      Phase
	transcript *services.Transcript
	display    models.DisplayOptions
	input      string
	review     *models.Review

	inflight  *exchange
	lastToken uint64
}

type ControllerOption func(*DialogueController)

func WithLogger(logger *zap.Logger) ControllerOption {
	return func(c *DialogueController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithCapabilities(caps models.Capabilities) ControllerOption {
	return func(c *DialogueController) {
		c.capabilities = caps
	}
}

func WithDisplayOptions(opts models.DisplayOptions) ControllerOption {
	return func(c *DialogueController) {
		c.display = opts
	}
}

func WithScenario(scenario models.Scenario) ControllerOption {
	return func(c *DialogueController) {
		if scenario != "" {
			c.scenario = scenario
		}
	}
}

func NewDialogueController(apiClient client.TutorClient, opts ...ControllerOption) *DialogueController {
	c := &DialogueController{
		apiClient:    apiClient,
		logger:       zap.NewNop(),
		capabilities: models.DefaultCapabilities(),
		scenario:     models.ScenarioRestaurant,
		phase:        PhaseUnstarted,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartDialogue seeds a new session with the tutor's opening line. Calling it
// on a started session restarts it with the same scenario.
func (c *DialogueController) StartDialogue(ctx context.Context, scenario models.Scenario) error {
	var display models.DisplayOptions

	ex, err := c.begin(ExchangeStart, func() error {
		if scenario == "" {
			scenario = c.scenario
		}
		if c.phase == PhaseActive && scenario != c.scenario {
			return ErrScenarioLocked
		}
		c.scenario = scenario
		display = c.display
		return nil
	})
	if err != nil {
		return err
	}

	resp, err := c.apiClient.StartDialogue(ctx, models.StartDialogueRequest{Scenario: scenario})
	if err != nil {
		return c.fail(ex, err)
	}

	seed := models.TutorTurn{
		Content:     resp.InitialLineZh,
		Pinyin:      models.OptionalText(resp.InitialLinePinyin, display.ShowPinyin),
		English:     models.OptionalText(resp.InitialLineEn, display.ShowEnglish),
		SituationZh: models.OptionalText(&resp.SituationZh, true),
		SituationEn: models.OptionalText(resp.SituationEn, display.ShowEnglish),
	}

	return c.finish(ex, func() {
		c.sessionID = uuid.NewString()
		c.transcript = services.NewTranscript(seed)
		c.phase = PhaseActive
		c.review = nil
		c.logger.Info("dialogue started",
			zap.String("session_id", c.sessionID),
			zap.String("scenario", scenario.String()))
	})
}

// SendResponse sends text as the learner's next line. On success the user
// turn and the tutor's reply are committed together and the input buffer is
// cleared; on failure nothing is committed and the buffer keeps text.
func (c *DialogueController) SendResponse(ctx context.Context, text string) error {
	var (
		before   *services.Transcript
		display  models.DisplayOptions
		scenario models.Scenario
	)

	ex, err := c.begin(ExchangeRespond, func() error {
		if c.phase != PhaseActive {
			return ErrNotStarted
		}
		if strings.TrimSpace(text) == "" {
			return ErrEmptyInput
		}
		c.input = text
		before = c.transcript
		display = c.display
		scenario = c.scenario
		return nil
	})
	if err != nil {
		return err
	}

	working := before.Append(models.NewUserTurn(text))

	resp, err := c.apiClient.Respond(ctx, models.RespondRequest{
		Response:            text,
		History:             before.History(),
		Scenario:            scenario,
		IncludeTranslations: display.IncludeTranslations(),
	})
	if err != nil {
		return c.fail(ex, err)
	}

	reply := models.TutorTurn{
		Content: resp.NextLineZh,
		Pinyin:  models.OptionalText(resp.NextLinePinyin, display.ShowPinyin),
		English: models.OptionalText(resp.NextLineEn, display.ShowEnglish),
	}
	if c.capabilities.PerTurnFeedback {
		reply.Evaluation = models.OptionalText(resp.Evaluation, true)
		reply.SuggestedWords = append([]string(nil), resp.SuggestedWords...)
	}
	working = working.Append(reply)

	return c.finish(ex, func() {
		c.transcript = working
		c.input = ""
	})
}

// RequestReview fetches the end-of-session review for the current transcript.
func (c *DialogueController) RequestReview(ctx context.Context) error {
	var (
		history  []models.HistoryEntry
		scenario models.Scenario
	)

	ex, err := c.begin(ExchangeReview, func() error {
		if !c.capabilities.EndOfSessionReview {
			return ErrReviewDisabled
		}
		if c.phase != PhaseActive {
			return ErrNotStarted
		}
		if c.transcript.Len() < 2 {
			return ErrReviewTooEarly
		}
		history = c.transcript.History()
		scenario = c.scenario
		return nil
	})
	if err != nil {
		return err
	}

	review, err := c.apiClient.Review(ctx, models.ReviewRequest{History: history, Scenario: scenario})
	if err != nil {
		return c.fail(ex, err)
	}
	review.Normalize()

	return c.finish(ex, func() {
		c.review = review
	})
}

// DismissReview closes the review panel. Turns are not affected.
func (c *DialogueController) DismissReview() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.review = nil
}

// Reset returns to the scenario selector. An exchange still in flight is
// superseded and its result will be dropped when it arrives.
func (c *DialogueController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		c.logger.Debug("superseding in-flight exchange",
			zap.String("exchange", c.inflight.kind.String()),
			zap.Uint64("token", c.inflight.token))
	}
	c.inflight = nil
	c.phase = PhaseUnstarted
	c.transcript = nil
	c.review = nil
	c.input = ""
	c.sessionID = ""
}

func (c *DialogueController) SelectScenario(scenario models.Scenario) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseActive {
		return ErrScenarioLocked
	}
	if c.inflight != nil {
		return ErrBusy
	}
	c.scenario = scenario
	return nil
}

func (c *DialogueController) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

func (c *DialogueController) SetShowPinyin(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.ShowPinyin = show
}

func (c *DialogueController) SetShowEnglish(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.ShowEnglish = show
}

func (c *DialogueController) TogglePinyin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.ShowPinyin = !c.display.ShowPinyin
	return c.display.ShowPinyin
}

func (c *DialogueController) ToggleEnglish() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.ShowEnglish = !c.display.ShowEnglish
	return c.display.ShowEnglish
}

func (c *DialogueController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		SessionID:    c.sessionID,
		Scenario:     c.scenario,
		Phase:        c.phase,
		InFlight:     ExchangeNone,
		Turns:        c.transcript.Turns(),
		Display:      c.display,
		Capabilities: c.capabilities,
		Input:        c.input,
	}
	if c.inflight != nil {
		snap.InFlight = c.inflight.kind
	}
	if c.review != nil {
		review := *c.review
		snap.Review = &review
	}
	return snap
}

// Transcript returns the committed transcript, nil before a session starts.
func (c *DialogueController) Transcript() *services.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// begin checks the preconditions under the lock and marks a new exchange as
// outstanding. check runs only when no other exchange is in flight.
func (c *DialogueController) begin(kind ExchangeKind, check func() error) (exchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		c.logger.Debug("exchange rejected while busy",
			zap.String("exchange", kind.String()),
			zap.String("in_flight", c.inflight.kind.String()))
		return exchange{}, ErrBusy
	}
	if err := check(); err != nil {
		return exchange{}, err
	}

	c.lastToken++
	ex := exchange{kind: kind, token: c.lastToken}
	c.inflight = &ex

	c.logger.Debug("exchange dispatched",
		zap.String("exchange", kind.String()),
		zap.Uint64("token", ex.token),
		zap.String("scenario", c.scenario.String()))
	return ex, nil
}

// finish applies a successful result if ex is still the current exchange.
func (c *DialogueController) finish(ex exchange, apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(ex) {
		c.logger.Debug("dropping stale exchange result",
			zap.String("exchange", ex.kind.String()),
			zap.Uint64("token", ex.token))
		return ErrStaleExchange
	}
	c.inflight = nil
	apply()
	return nil
}

// fail reports err to the log sink and releases the pending gate. State is
// otherwise left as it was before the exchange. A superseded exchange is
// dropped the same way finish drops it.
func (c *DialogueController) fail(ex exchange, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(ex) {
		c.logger.Debug("dropping stale exchange result",
			zap.String("exchange", ex.kind.String()),
			zap.Uint64("token", ex.token),
			zap.Error(err))
		return ErrStaleExchange
	}

	c.logger.Error("exchange failed",
		zap.String("exchange", ex.kind.String()),
		zap.Uint64("token", ex.token),
		zap.String("scenario", c.scenario.String()),
		zap.Error(err))

	c.inflight = nil
	return err
}

func (c *DialogueController) isCurrent(ex exchange) bool {
	return c.inflight != nil && c.inflight.token == ex.token
}
