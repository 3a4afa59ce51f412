package handlers

import (
	"llm-tournament-widget/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService, resultService *services.ResultService, streamService *services.StreamService) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "LLM Tournament Widget API"})
	})
	app.Get("/test-stream", streamService.TestStream)

	// Tournament CRUD
	app.Post("/tournaments", tournamentService.CreateTournament)
	app.Get("/tournaments", tournamentService.GetAllTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	app.Delete("/tournaments/:id", tournamentService.DeleteTournament)

	// Prompts
	app.Get("/tournaments/:id/prompts", tournamentService.GetTournamentPrompts)
	app.Post("/tournaments/:id/prompts", tournamentService.AddPrompt)
	app.Delete("/tournaments/:id/prompts/:prompt_id", tournamentService.DeletePrompt)

	// Streaming generation. Registered for GET too so EventSource clients
	// can reach them.
	app.Get("/tournaments/:id/auto-generate", streamService.AutoGenerate)
	app.Post("/tournaments/:id/auto-generate", streamService.AutoGenerate)
	app.Get("/tournaments/:id/auto-generate-all", streamService.AutoGenerateAll)
	app.Post("/tournaments/:id/auto-generate-all", streamService.AutoGenerateAll)

	// Results & scoring
	app.Post("/tournaments/:id/results", resultService.SubmitResult)
	app.Get("/tournaments/:id/results", resultService.GetResults)
	app.Post("/tournaments/:id/score", resultService.ScoreResult)
	app.Post("/tournaments/:id/auto-score", resultService.AutoScore)
	app.Post("/tournaments/:id/auto-score-all", resultService.AutoScoreAll)
	app.Get("/tournaments/:id/leaderboard", resultService.GetLeaderboard)
}
