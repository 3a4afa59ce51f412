package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"llm-tournament-widget/llm"
	"llm-tournament-widget/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Per-prompt stream statuses, also the wire values in event payloads.
const (
	StatusStarting        = "starting"
	StatusComplete        = "complete"
	StatusPartialComplete = "partial_complete"
	StatusSkipped         = "skipped"
	StatusError           = "error"
)

// StreamEvent is one element of a generation session's event sequence. The
// transport (SSE, test iteration) just serializes these in order.
type StreamEvent struct {
	PromptID       string         `json:"prompt_id,omitempty"`
	Token          string         `json:"token,omitempty"`
	Status         string         `json:"status,omitempty"`
	ResultID       string         `json:"result_id,omitempty"`
	ResponseLength int            `json:"response_length,omitempty"`
	Error          string         `json:"error,omitempty"`
	Message        string         `json:"message,omitempty"`
	Summary        *StreamSummary `json:"summary,omitempty"`
}

// StreamSummary closes a bulk session: generated + skipped + errors == total.
type StreamSummary struct {
	Total     int `json:"total"`
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

type promptOutcome int

const (
	outcomeGenerated promptOutcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeAbandoned // client went away, session stops silently
)

// StreamOrchestrator drives single-prompt and bulk generation sessions:
// eligibility check, token relay, persistence on the terminal state, and
// optional auto-scoring afterward. Results are always written before the
// event announcing them is emitted.
type StreamOrchestrator struct {
	DB        *gorm.DB
	Generator llm.Generator
	Scorer    llm.Scorer
	AutoScore bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStreamOrchestrator(db *gorm.DB, generator llm.Generator, scorer llm.Scorer, autoScore bool) *StreamOrchestrator {
	return &StreamOrchestrator{
		DB:        db,
		Generator: generator,
		Scorer:    scorer,
		AutoScore: autoScore,
		locks:     make(map[string]*sync.Mutex),
	}
}

// tournamentLock serializes the eligibility check and the result write for
// one tournament across concurrent sessions in this process. The composite
// unique index on results is the backstop against other writers.
func (o *StreamOrchestrator) tournamentLock(tournamentID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[tournamentID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[tournamentID] = lock
	}
	return lock
}

// StreamPrompt runs a single-prompt generation session. Lookup failures are
// returned up front; everything after that arrives on the channel, which is
// closed at the prompt's terminal state.
func (o *StreamOrchestrator) StreamPrompt(ctx context.Context, tournamentID, promptID, model string) (<-chan StreamEvent, error) {
	tournament, err := o.loadTournament(tournamentID)
	if err != nil {
		return nil, err
	}

	var prompt models.Prompt
	if err := o.DB.First(&prompt, "id = ?", promptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: prompt %s", models.ErrNotFound, promptID)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	if prompt.TournamentID != tournamentID {
		return nil, fmt.Errorf("%w: prompt %s does not belong to tournament %s", models.ErrValidation, promptID, tournamentID)
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		o.runPrompt(ctx, tournament, &prompt, model, events)
	}()
	return events, nil
}

// StreamAll runs a bulk session over every prompt of the tournament in
// insertion order. Prompts that already hold a result emit skipped events;
// the session always ends with a summary event unless the client goes away.
func (o *StreamOrchestrator) StreamAll(ctx context.Context, tournamentID, model string) (<-chan StreamEvent, error) {
	tournament, err := o.loadTournament(tournamentID)
	if err != nil {
		return nil, err
	}

	var prompts []models.Prompt
	if err := o.DB.Where("tournament_id = ?", tournamentID).
		Order("sort_order ASC").
		Find(&prompts).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: no prompts for tournament %s", models.ErrNotFound, tournamentID)
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)

		summary := StreamSummary{Total: len(prompts)}
		for i := range prompts {
			switch o.runPrompt(ctx, tournament, &prompts[i], model, events) {
			case outcomeGenerated:
				summary.Generated++
			case outcomeSkipped:
				summary.Skipped++
			case outcomeFailed:
				summary.Errors++
			case outcomeAbandoned:
				return
			}
		}

		o.emit(ctx, events, StreamEvent{Status: StatusComplete, Summary: &summary})
	}()
	return events, nil
}

func (o *StreamOrchestrator) loadTournament(tournamentID string) (*models.Tournament, error) {
	var tournament models.Tournament
	if err := o.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: tournament %s", models.ErrNotFound, tournamentID)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return &tournament, nil
}

// emit delivers one event unless the client abandoned the session. Events
// carrying result ids are only ever passed here after the row is committed.
func (o *StreamOrchestrator) emit(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// runPrompt walks one prompt through its state machine:
// Idle → Starting → Streaming → Completed | PartiallyCompleted | Skipped | Failed.
func (o *StreamOrchestrator) runPrompt(ctx context.Context, tournament *models.Tournament, prompt *models.Prompt, model string, events chan<- StreamEvent) promptOutcome {
	existing, err := o.existingResult(tournament.ID, prompt.ID)
	if err != nil {
		if !o.emit(ctx, events, StreamEvent{PromptID: prompt.ID, Status: StatusError, Error: err.Error()}) {
			return outcomeAbandoned
		}
		return outcomeFailed
	}
	if existing != nil {
		// Skipped carries the existing response so a bulk re-run can display
		// it uniformly next to freshly streamed ones.
		if !o.emit(ctx, events, StreamEvent{
			PromptID: prompt.ID,
			Status:   StatusSkipped,
			ResultID: existing.ID,
			Message:  fmt.Sprintf("Response already exists: %s", existing.Response),
		}) {
			return outcomeAbandoned
		}
		return outcomeSkipped
	}

	if !o.emit(ctx, events, StreamEvent{PromptID: prompt.ID, Status: StatusStarting}) {
		return outcomeAbandoned
	}

	stream, err := o.Generator.Generate(ctx, prompt.Content, tournament.Question, model)
	if err != nil {
		if !o.emit(ctx, events, StreamEvent{PromptID: prompt.ID, Status: StatusError, Error: err.Error()}) {
			return outcomeAbandoned
		}
		return outcomeFailed
	}
	defer stream.Close()

	var buf strings.Builder
	var streamErr error
	for {
		token, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			streamErr = err
			break
		}
		if token == "" {
			continue
		}
		buf.WriteString(token)
		if !o.emit(ctx, events, StreamEvent{PromptID: prompt.ID, Token: token}) {
			return outcomeAbandoned
		}
	}

	full := buf.String()

	if streamErr != nil {
		if strings.TrimSpace(full) == "" {
			// Died before any content arrived: nothing to persist.
			if !o.emit(ctx, events, StreamEvent{PromptID: prompt.ID, Status: StatusError, Error: streamErr.Error()}) {
				return outcomeAbandoned
			}
			return outcomeFailed
		}

		// The partial flag, not the response text, marks the cut-off.
		result, err := o.persistResult(tournament.ID, prompt.ID, full, true)
		if err != nil {
			if !o.emit(ctx, events, StreamEvent{
				PromptID: prompt.ID,
				Status:   StatusError,
				Error:    fmt.Sprintf("failed to save partial response: %v", streamErr),
			}) {
				return outcomeAbandoned
			}
			return outcomeFailed
		}
		if !o.emit(ctx, events, StreamEvent{
			PromptID:       prompt.ID,
			Status:         StatusPartialComplete,
			ResultID:       result.ID,
			ResponseLength: len(full),
			Message:        "Response saved but was cut off due to an error",
		}) {
			return outcomeAbandoned
		}
		return outcomeGenerated
	}

	if strings.TrimSpace(full) == "" {
		if !o.emit(ctx, events, StreamEvent{
			PromptID: prompt.ID,
			Status:   StatusError,
			Error:    fmt.Sprintf("No content received from %s. Please try again.", displayModel(model)),
		}) {
			return outcomeAbandoned
		}
		return outcomeFailed
	}

	result, err := o.persistResult(tournament.ID, prompt.ID, full, false)
	if err != nil {
		if !o.emit(ctx, events, StreamEvent{PromptID: prompt.ID, Status: StatusError, Error: err.Error()}) {
			return outcomeAbandoned
		}
		return outcomeFailed
	}

	if o.AutoScore && o.Scorer != nil {
		// Fire-and-forget: a scoring failure never rolls back the result.
		go o.scoreResult(result.ID, prompt.Content, tournament.Question, full)
	}

	if !o.emit(ctx, events, StreamEvent{
		PromptID:       prompt.ID,
		Status:         StatusComplete,
		ResultID:       result.ID,
		ResponseLength: len(full),
	}) {
		return outcomeAbandoned
	}
	return outcomeGenerated
}

func (o *StreamOrchestrator) existingResult(tournamentID, promptID string) (*models.Result, error) {
	lock := o.tournamentLock(tournamentID)
	lock.Lock()
	defer lock.Unlock()

	var existing models.Result
	err := o.DB.Where("tournament_id = ? AND prompt_id = ?", tournamentID, promptID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return &existing, nil
}

func (o *StreamOrchestrator) persistResult(tournamentID, promptID, response string, partial bool) (*models.Result, error) {
	lock := o.tournamentLock(tournamentID)
	lock.Lock()
	defer lock.Unlock()

	result := &models.Result{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		PromptID:     promptID,
		Response:     response,
		Partial:      partial,
	}
	if err := o.DB.Create(result).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return result, nil
}

func (o *StreamOrchestrator) scoreResult(resultID, promptContent, question, response string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	eval, err := o.Scorer.Score(ctx, promptContent, question, response)
	if err != nil {
		log.Printf("⚠️ AI scoring failed for result %s: %v", resultID, err)
		return
	}
	if err := applyEvaluation(o.DB, resultID, eval); err != nil {
		log.Printf("⚠️ Failed to store evaluation for result %s: %v", resultID, err)
		return
	}
	log.Printf("🤖 AI scored result %s with score %.1f/10", resultID, eval.Score)
}

func displayModel(model string) string {
	if model == "" {
		return llm.DefaultModel
	}
	return model
}
