package services

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"llm-tournament-widget/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTournamentTestApp(db *gorm.DB) *fiber.App {
	app := fiber.New()
	s := NewTournamentService(db)
	app.Post("/tournaments", s.CreateTournament)
	app.Get("/tournaments", s.GetAllTournaments)
	app.Get("/tournaments/:id", s.GetTournamentByID)
	app.Delete("/tournaments/:id", s.DeleteTournament)
	app.Get("/tournaments/:id/prompts", s.GetTournamentPrompts)
	app.Post("/tournaments/:id/prompts", s.AddPrompt)
	app.Delete("/tournaments/:id/prompts/:prompt_id", s.DeletePrompt)
	return app
}

func TestCreateTournamentWithPrompts(t *testing.T) {
	db := newTestDB(t)
	app := newTournamentTestApp(db)

	resp, err := app.Test(jsonRequest("POST", "/tournaments", models.CreateTournamentRequest{
		Name:        "Economics Showdown",
		Description: "compare prompt styles",
		Question:    "Explain inflation",
		Prompts: []models.CreatePromptRequest{
			{Name: "Concise", Content: "Answer in two sentences."},
			{Name: "Detailed", Content: "Answer with examples and data."},
		},
	}))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var payload struct {
		TournamentID string            `json:"tournament_id"`
		Tournament   models.Tournament `json:"tournament"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.NotEmpty(t, payload.TournamentID)
	assert.Equal(t, "Economics Showdown", payload.Tournament.Name)
	assert.Equal(t, "economics-showdown", payload.Tournament.Slug)
	assert.Equal(t, "active", payload.Tournament.Status)
	require.Len(t, payload.Tournament.Prompts, 2)
	assert.Len(t, payload.Tournament.PromptIDs, 2)

	// Insertion order survives the round trip.
	assert.Equal(t, "Concise", payload.Tournament.Prompts[0].Name)
	assert.Equal(t, 0, payload.Tournament.Prompts[0].SortOrder)
	assert.Equal(t, 1, payload.Tournament.Prompts[1].SortOrder)
}

func TestCreateTournamentValidation(t *testing.T) {
	db := newTestDB(t)
	app := newTournamentTestApp(db)

	resp, err := app.Test(jsonRequest("POST", "/tournaments", models.CreateTournamentRequest{
		Name: "missing question",
	}))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(jsonRequest("POST", "/tournaments", models.CreateTournamentRequest{
		Name:     "bad prompt",
		Question: "q",
		Prompts:  []models.CreatePromptRequest{{Name: "no content"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetTournamentNotFound(t *testing.T) {
	db := newTestDB(t)
	app := newTournamentTestApp(db)

	resp, err := app.Test(httptest.NewRequest("GET", "/tournaments/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestAddPromptAppends(t *testing.T) {
	db := newTestDB(t)
	tournament, _ := seedTournament(t, db, "q", "first", "second")
	app := newTournamentTestApp(db)

	resp, err := app.Test(jsonRequest("POST", "/tournaments/"+tournament.ID+"/prompts", models.CreatePromptRequest{
		Name:    "Third",
		Content: "third content",
	}))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var prompts []models.Prompt
	require.NoError(t, db.Where("tournament_id = ?", tournament.ID).Order("sort_order ASC").Find(&prompts).Error)
	require.Len(t, prompts, 3)
	assert.Equal(t, "Third", prompts[2].Name)
	assert.Equal(t, 2, prompts[2].SortOrder)
}

func TestAddPromptValidation(t *testing.T) {
	db := newTestDB(t)
	tournament, _ := seedTournament(t, db, "q")
	app := newTournamentTestApp(db)

	resp, err := app.Test(jsonRequest("POST", "/tournaments/"+tournament.ID+"/prompts", models.CreatePromptRequest{
		Content: "content without a name",
	}))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDeletePromptCascadesResults(t *testing.T) {
	db := newTestDB(t)
	tournament, prompts := seedTournament(t, db, "q", "p1", "p2")
	seedResult(t, db, tournament.ID, prompts[0].ID, "resp", nil)

	app := newTournamentTestApp(db)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/tournaments/"+tournament.ID+"/prompts/"+prompts[0].ID, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var promptCount, resultCount int64
	db.Model(&models.Prompt{}).Where("tournament_id = ?", tournament.ID).Count(&promptCount)
	db.Model(&models.Result{}).Where("tournament_id = ?", tournament.ID).Count(&resultCount)
	assert.EqualValues(t, 1, promptCount)
	assert.EqualValues(t, 0, resultCount)
}

func TestDeletePromptWrongTournament(t *testing.T) {
	db := newTestDB(t)
	tournament, _ := seedTournament(t, db, "q", "p")
	_, otherPrompts := seedTournament(t, db, "q2", "p2")

	app := newTournamentTestApp(db)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/tournaments/"+tournament.ID+"/prompts/"+otherPrompts[0].ID, nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDeleteTournamentCascades(t *testing.T) {
	db := newTestDB(t)
	tournament, prompts := seedTournament(t, db, "q", "p1", "p2", "p3")
	seedResult(t, db, tournament.ID, prompts[0].ID, "a", nil)
	seedResult(t, db, tournament.ID, prompts[1].ID, "b", floatPtr(8))

	app := newTournamentTestApp(db)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/tournaments/"+tournament.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var tournamentCount, promptCount, resultCount int64
	db.Model(&models.Tournament{}).Count(&tournamentCount)
	db.Model(&models.Prompt{}).Count(&promptCount)
	db.Model(&models.Result{}).Count(&resultCount)
	assert.Zero(t, tournamentCount)
	assert.Zero(t, promptCount)
	assert.Zero(t, resultCount)

	// Deleting again is an error, not a no-op.
	resp, err = app.Test(httptest.NewRequest("DELETE", "/tournaments/"+tournament.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
