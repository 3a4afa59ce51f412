package services

import (
	"log"
	"strings"

	"llm-tournament-widget/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type TournamentService struct {
	DB *gorm.DB
}

func NewTournamentService(db *gorm.DB) *TournamentService {
	return &TournamentService{DB: db}
}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	var req models.CreateTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	// --- Validation ---
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Question) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name and question are required"})
	}
	for _, p := range req.Prompts {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Content) == "" {
			return c.Status(400).JSON(fiber.Map{"error": "each prompt needs a name and content"})
		}
	}

	tournament := &models.Tournament{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug.Make(req.Name),
		Description: req.Description,
		Question:    req.Question,
		Status:      "active",
	}

	prompts := make([]models.Prompt, 0, len(req.Prompts))
	for i, p := range req.Prompts {
		prompts = append(prompts, models.Prompt{
			ID:           uuid.NewString(),
			TournamentID: tournament.ID,
			Name:         strings.TrimSpace(p.Name),
			Content:      strings.TrimSpace(p.Content),
			Description:  p.Description,
			SortOrder:    i,
		})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tournament).Error; err != nil {
			return err
		}
		for i := range prompts {
			if err := tx.Create(&prompts[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR creating tournament: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	tournament.Prompts = prompts
	tournament.PromptIDs = promptIDs(prompts)

	log.Printf("📝 Created tournament '%s' with %d prompts", tournament.Name, len(prompts))

	return c.Status(201).JSON(fiber.Map{
		"tournament_id": tournament.ID,
		"tournament":    tournament,
	})
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	err := s.DB.
		Preload("Prompts", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("created_at DESC").
		Find(&tournaments).Error
	if err != nil {
		log.Printf("ERROR fetching tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	for i := range tournaments {
		tournaments[i].PromptIDs = promptIDs(tournaments[i].Prompts)
	}
	return c.JSON(tournaments)
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var tournament models.Tournament
	err := s.DB.
		Preload("Prompts", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&tournament, "id = ?", id).Error
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	tournament.PromptIDs = promptIDs(tournament.Prompts)
	return c.JSON(tournament)
}

// DeleteTournament cascades to the tournament's prompts and results in one
// transaction. Prompts and results never outlive their tournament.
func (s *TournamentService) DeleteTournament(c *fiber.Ctx) error {
	id := c.Params("id")

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	var promptCount, resultCount int64
	s.DB.Model(&models.Prompt{}).Where("tournament_id = ?", id).Count(&promptCount)
	s.DB.Model(&models.Result{}).Where("tournament_id = ?", id).Count(&resultCount)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tournament_id = ?", id).Delete(&models.Result{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", id).Delete(&models.Prompt{}).Error; err != nil {
			return err
		}
		return tx.Delete(&tournament).Error
	})
	if err != nil {
		log.Printf("ERROR deleting tournament %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete tournament"})
	}

	log.Printf("🗑️  Deleted tournament '%s' with %d prompts and %d results", tournament.Name, promptCount, resultCount)

	return c.JSON(fiber.Map{"message": "Tournament '" + tournament.Name + "' deleted successfully"})
}

func (s *TournamentService) GetTournamentPrompts(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := s.DB.First(&models.Tournament{}, "id = ?", id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	var prompts []models.Prompt
	if err := s.DB.Where("tournament_id = ?", id).
		Order("sort_order ASC").
		Find(&prompts).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch prompts"})
	}
	return c.JSON(prompts)
}

// AddPrompt appends a new prompt to an existing tournament.
func (s *TournamentService) AddPrompt(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.CreatePromptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Prompt name is required"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Prompt content is required"})
	}

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}

	var maxOrder int
	row := s.DB.Model(&models.Prompt{}).
		Where("tournament_id = ?", id).
		Select("COALESCE(MAX(sort_order), -1)").
		Row()
	if err := row.Scan(&maxOrder); err != nil {
		maxOrder = -1
	}

	prompt := &models.Prompt{
		ID:           uuid.NewString(),
		TournamentID: id,
		Name:         strings.TrimSpace(req.Name),
		Content:      strings.TrimSpace(req.Content),
		Description:  req.Description,
		SortOrder:    maxOrder + 1,
	}
	if err := s.DB.Create(prompt).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	log.Printf("📝 Added prompt '%s' to tournament '%s'", prompt.Name, tournament.Name)

	return c.Status(201).JSON(fiber.Map{"prompt_id": prompt.ID, "prompt": prompt})
}

// DeletePrompt removes one prompt and cascades to its results.
func (s *TournamentService) DeletePrompt(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	promptID := c.Params("prompt_id")

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Tournament not found"})
	}
	var prompt models.Prompt
	if err := s.DB.First(&prompt, "id = ?", promptID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Prompt not found"})
	}
	if prompt.TournamentID != tournamentID {
		return c.Status(400).JSON(fiber.Map{"error": "Prompt does not belong to this tournament"})
	}

	var resultCount int64
	s.DB.Model(&models.Result{}).Where("prompt_id = ?", promptID).Count(&resultCount)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prompt_id = ?", promptID).Delete(&models.Result{}).Error; err != nil {
			return err
		}
		return tx.Delete(&prompt).Error
	})
	if err != nil {
		log.Printf("ERROR deleting prompt %s: %v", promptID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete prompt"})
	}

	log.Printf("🗑️ Deleted prompt '%s' from tournament '%s' (%d results removed)", prompt.Name, tournament.Name, resultCount)

	return c.JSON(fiber.Map{
		"message":         "Prompt '" + prompt.Name + "' deleted successfully",
		"deleted_results": resultCount,
	})
}

func promptIDs(prompts []models.Prompt) []string {
	ids := make([]string, 0, len(prompts))
	for _, p := range prompts {
		ids = append(ids, p.ID)
	}
	return ids
}
