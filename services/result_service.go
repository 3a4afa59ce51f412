package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"llm-tournament-widget/llm"
	"llm-tournament-widget/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResultService owns manual result submission, score application, on-demand
// AI scoring, and the leaderboard view.
type ResultService struct {
	DB     *gorm.DB
	Scorer llm.Scorer
}

func NewResultService(db *gorm.DB, scorer llm.Scorer) *ResultService {
	return &ResultService{DB: db, Scorer: scorer}
}

// SubmitResult records a manually produced response for a prompt. Rejected
// when a result already exists for the pair.
func (s *ResultService) SubmitResult(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var req models.SubmitResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.PromptID == "" || strings.TrimSpace(req.Response) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "prompt_id and response are required"})
	}

	if err := s.DB.First(&models.Tournament{}, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	var prompt models.Prompt
	if err := s.DB.First(&prompt, "id = ?", req.PromptID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Prompt not found"})
	}
	if prompt.TournamentID != tournamentID {
		return c.Status(400).JSON(fiber.Map{"error": "Prompt does not belong to this tournament"})
	}

	var existing models.Result
	err := s.DB.Where("tournament_id = ? AND prompt_id = ?", tournamentID, req.PromptID).
		First(&existing).Error
	if err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "Result already exists for this prompt"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(500).JSON(fiber.Map{"error": "failed to check existing results"})
	}

	result := &models.Result{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		PromptID:     req.PromptID,
		Response:     req.Response,
	}
	if err := s.DB.Create(result).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	return c.Status(201).JSON(fiber.Map{"result_id": result.ID, "result": result})
}

// GetResults returns every result of a tournament.
func (s *ResultService) GetResults(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	if err := s.DB.First(&models.Tournament{}, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	var results []models.Result
	if err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		log.Printf("ERROR fetching results for tournament %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch results"})
	}
	return c.JSON(results)
}

// ScoreResult applies an externally computed score to the result of one
// prompt. Rescoring silently replaces the prior score and feedback.
func (s *ResultService) ScoreResult(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var req models.ScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.DB.First(&models.Tournament{}, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	var result models.Result
	err := s.DB.Where("tournament_id = ? AND prompt_id = ?", tournamentID, req.PromptID).
		First(&result).Error
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Result not found"})
	}

	if err := ApplyScore(s.DB, result.ID, req.Score, req.Feedback); err != nil {
		if errors.Is(err, models.ErrValidation) {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to update score"})
	}

	return c.JSON(fiber.Map{"message": "Score updated successfully"})
}

// ApplyScore validates the 1-10 range and overwrites the result's score and
// feedback. Out-of-range input leaves the result untouched.
func ApplyScore(db *gorm.DB, resultID string, score float64, feedback string) error {
	if score < 1 || score > 10 {
		return fmt.Errorf("%w: score must be between 1 and 10", models.ErrValidation)
	}

	var result models.Result
	if err := db.First(&result, "id = ?", resultID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: result %s", models.ErrNotFound, resultID)
		}
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	updates := map[string]interface{}{
		"score":    score,
		"feedback": feedback,
	}
	if err := db.Model(&result).Updates(updates).Error; err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return nil
}

// applyEvaluation stores a structured AI evaluation on a result, marking it
// ai_evaluated and stamping the evaluation time.
func applyEvaluation(db *gorm.DB, resultID string, eval *llm.Evaluation) error {
	now := time.Now()
	updates := map[string]interface{}{
		"score":                eval.Score,
		"feedback":             eval.Feedback,
		"ai_evaluated":         true,
		"evaluation_timestamp": &now,
		"strengths":            strings.Join(eval.Strengths, "\n"),
		"improvements":         strings.Join(eval.Improvements, "\n"),
	}
	if eval.RelevanceScore != 0 {
		updates["relevance_score"] = eval.RelevanceScore
	}
	if eval.ClarityScore != 0 {
		updates["clarity_score"] = eval.ClarityScore
	}

	res := db.Model(&models.Result{}).Where("id = ?", resultID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: result %s", models.ErrNotFound, resultID)
	}
	return nil
}

// AutoScore runs the scoring gateway against one result.
func (s *ResultService) AutoScore(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var req models.AutoScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.PromptID == "" || req.ResultID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "prompt_id and result_id are required"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	var result models.Result
	if err := s.DB.First(&result, "id = ?", req.ResultID).Error; err != nil ||
		result.TournamentID != tournamentID || result.PromptID != req.PromptID {
		return c.Status(404).JSON(fiber.Map{"error": "Result not found"})
	}

	var prompt models.Prompt
	if err := s.DB.First(&prompt, "id = ?", req.PromptID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Prompt not found"})
	}

	eval, err := s.Scorer.Score(c.Context(), prompt.Content, tournament.Question, result.Response)
	if err != nil {
		log.Printf("❌ AI scoring failed for result %s: %v", result.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": fmt.Sprintf("AI scoring failed: %v", err)})
	}
	if err := applyEvaluation(s.DB, result.ID, eval); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to store evaluation"})
	}

	log.Printf("🤖 AI scored result %s with score %.1f/10", result.ID, eval.Score)

	return c.JSON(fiber.Map{
		"result_id":    result.ID,
		"score":        eval.Score,
		"feedback":     eval.Feedback,
		"ai_evaluated": true,
	})
}

// AutoScoreAll scores every unscored result of a tournament, continuing past
// per-result failures.
func (s *ResultService) AutoScoreAll(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	scored, failed, total, err := s.ScoreUnscored(c.Context(), &tournament)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch unscored results"})
	}
	if total == 0 {
		return c.JSON(fiber.Map{"message": "All responses are already scored", "scored_count": 0})
	}

	return c.JSON(fiber.Map{
		"message":        "AI scoring completed",
		"total_unscored": total,
		"scored_count":   scored,
		"failed_count":   failed,
	})
}

// ScoreUnscored is the scoring sweep shared by the HTTP endpoint and the
// background worker.
func (s *ResultService) ScoreUnscored(ctx context.Context, tournament *models.Tournament) (scored, failed, total int, err error) {
	var unscored []models.Result
	if err := s.DB.Where("tournament_id = ? AND score IS NULL", tournament.ID).
		Find(&unscored).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	for i := range unscored {
		result := &unscored[i]

		var prompt models.Prompt
		if err := s.DB.First(&prompt, "id = ?", result.PromptID).Error; err != nil {
			failed++
			continue
		}

		eval, err := s.Scorer.Score(ctx, prompt.Content, tournament.Question, result.Response)
		if err != nil {
			log.Printf("⚠️ Failed to score result %s: %v", result.ID, err)
			failed++
			continue
		}
		if err := applyEvaluation(s.DB, result.ID, eval); err != nil {
			log.Printf("⚠️ Failed to store evaluation for result %s: %v", result.ID, err)
			failed++
			continue
		}
		scored++
	}

	return scored, failed, len(unscored), nil
}

// GetLeaderboard returns the ranked view for a tournament.
func (s *ResultService) GetLeaderboard(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	entries, err := BuildLeaderboard(s.DB, tournamentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
		}
		log.Printf("ERROR building leaderboard for tournament %s: %v", tournamentID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to build leaderboard"})
	}
	return c.JSON(entries)
}

// BuildLeaderboard joins every result of the tournament to its prompt's name
// and content. Scored entries come first, by descending score; unscored
// entries follow in submission order. The scored/unscored split stays a view
// over one result set.
func BuildLeaderboard(db *gorm.DB, tournamentID string) ([]models.LeaderboardEntry, error) {
	if err := db.First(&models.Tournament{}, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: tournament %s", models.ErrNotFound, tournamentID)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	var results []models.Result
	if err := db.Where("tournament_id = ?", tournamentID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	var prompts []models.Prompt
	if err := db.Where("tournament_id = ?", tournamentID).Find(&prompts).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	promptsByID := make(map[string]*models.Prompt, len(prompts))
	for i := range prompts {
		promptsByID[prompts[i].ID] = &prompts[i]
	}

	entries := make([]models.LeaderboardEntry, 0, len(results))
	for _, result := range results {
		entry := models.LeaderboardEntry{Result: result}
		if prompt, ok := promptsByID[result.PromptID]; ok {
			entry.PromptName = prompt.Name
			entry.PromptContent = prompt.Content
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Scored() && b.Scored():
			return *a.Score > *b.Score
		case a.Scored():
			return true
		default:
			return false
		}
	})

	return entries, nil
}
