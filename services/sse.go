package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"llm-tournament-widget/models"

	"github.com/gofiber/fiber/v2"
)

// StreamService is the SSE face of the orchestrator. The orchestrator only
// produces ordered StreamEvent sequences; this adapter serializes them as
// one `data:` line per event and flushes after each.
type StreamService struct {
	Orchestrator *StreamOrchestrator
}

func NewStreamService(orchestrator *StreamOrchestrator) *StreamService {
	return &StreamService{Orchestrator: orchestrator}
}

// AutoGenerate streams a single-prompt generation session. Accepts both GET
// (EventSource, query params) and POST (JSON body); the body wins.
func (s *StreamService) AutoGenerate(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	promptID := c.Query("prompt_id")
	model := c.Query("model")

	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		var req models.AutoGenerateRequest
		if err := c.BodyParser(&req); err == nil {
			if req.TournamentID != "" {
				tournamentID = req.TournamentID
			}
			if req.PromptID != "" {
				promptID = req.PromptID
			}
			if req.Model != "" {
				model = req.Model
			}
		}
	}

	if promptID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "prompt_id is required"})
	}

	events, err := s.Orchestrator.StreamPrompt(c.Context(), tournamentID, promptID, model)
	if err != nil {
		return streamSetupError(c, err)
	}

	writeEventStream(c, events)
	return nil
}

// AutoGenerateAll streams a bulk session over every prompt of a tournament,
// ending in the summary event.
func (s *StreamService) AutoGenerateAll(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	model := c.Query("model")

	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		var req models.BulkAutoGenerateRequest
		if err := c.BodyParser(&req); err == nil {
			if req.TournamentID != "" {
				tournamentID = req.TournamentID
			}
			if req.Model != "" {
				model = req.Model
			}
		}
	}

	events, err := s.Orchestrator.StreamAll(c.Context(), tournamentID, model)
	if err != nil {
		return streamSetupError(c, err)
	}

	writeEventStream(c, events)
	return nil
}

// TestStream emits five timestamped events and a completion marker. Kept for
// debugging proxies that buffer or strip event streams.
func (s *StreamService) TestStream(c *fiber.Ctx) error {
	setSSEHeaders(c)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for i := 0; i < 5; i++ {
			payload, _ := json.Marshal(fiber.Map{
				"message":   fmt.Sprintf("Test message %d", i+1),
				"timestamp": time.Now().Format(time.RFC3339),
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			if err := w.Flush(); err != nil {
				return
			}
			time.Sleep(time.Second)
		}
		fmt.Fprint(w, "data: {\"complete\": true}\n\n")
		w.Flush()
	})
	return nil
}

func setSSEHeaders(c *fiber.Ctx) {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx
}

// writeEventStream drains the session's event channel into the response.
// Returning on a failed flush is what ends an abandoned session: the
// producer's next send blocks until the request context cancels.
func writeEventStream(c *fiber.Ctx, events <-chan StreamEvent) {
	setSSEHeaders(c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for ev := range events {
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			if err := w.Flush(); err != nil {
				// Client disconnected
				return
			}
		}
	})
}

func streamSetupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrValidation):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
}
