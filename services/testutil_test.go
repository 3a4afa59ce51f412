package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"llm-tournament-widget/llm"
	"llm-tournament-widget/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Tournament{},
		&models.Prompt{},
		&models.Result{},
	))
	return db
}

func seedTournament(t *testing.T, db *gorm.DB, question string, promptContents ...string) (*models.Tournament, []models.Prompt) {
	t.Helper()

	tournament := &models.Tournament{
		ID:       uuid.NewString(),
		Name:     "Test Tournament",
		Slug:     "test-tournament",
		Question: question,
		Status:   "active",
	}
	require.NoError(t, db.Create(tournament).Error)

	prompts := make([]models.Prompt, 0, len(promptContents))
	for i, content := range promptContents {
		prompt := models.Prompt{
			ID:           uuid.NewString(),
			TournamentID: tournament.ID,
			Name:         fmt.Sprintf("Prompt %d", i+1),
			Content:      content,
			SortOrder:    i,
		}
		require.NoError(t, db.Create(&prompt).Error)
		prompts = append(prompts, prompt)
	}
	return tournament, prompts
}

// fakeStream plays back a scripted token sequence, then either completes
// (io.EOF) or fails with err.
type fakeStream struct {
	tokens []string
	err    error
	idx    int
}

func (s *fakeStream) Recv() (string, error) {
	if s.idx < len(s.tokens) {
		token := s.tokens[s.idx]
		s.idx++
		return token, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error { return nil }

type script struct {
	tokens []string
	err    error
}

// fakeGenerator scripts streams per prompt content. A nil script map entry
// (or missing content) fails the Generate call itself.
type fakeGenerator struct {
	scripts map[string]script
	callErr error
}

func (g *fakeGenerator) Generate(_ context.Context, promptContent, question, model string) (llm.TokenStream, error) {
	if g.callErr != nil {
		return nil, g.callErr
	}
	sc, ok := g.scripts[promptContent]
	if !ok {
		return nil, fmt.Errorf("%w: no script for prompt", models.ErrGeneration)
	}
	return &fakeStream{tokens: sc.tokens, err: sc.err}, nil
}

type fakeScorer struct {
	mu    sync.Mutex
	eval  *llm.Evaluation
	err   error
	calls int
}

func (s *fakeScorer) Score(_ context.Context, promptContent, question, response string) (*llm.Evaluation, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.eval != nil {
		return s.eval, nil
	}
	return &llm.Evaluation{Score: 7, Feedback: "solid"}, nil
}

func (s *fakeScorer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func collectEvents(t *testing.T, events <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var collected []StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	return collected
}
