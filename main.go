package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"llm-tournament-widget/handlers"
	"llm-tournament-widget/llm"
	"llm-tournament-widget/middleware"
	"llm-tournament-widget/models"
	"llm-tournament-widget/services"
	"llm-tournament-widget/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "LLM Tournament Widget",
	})

	app.Use(middleware.ServiceTokenMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Cache-Control, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.Prompt{},
		&models.Result{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	openaiClient := llm.NewClientFromEnv()
	generator := llm.NewOpenAIGenerator(openaiClient)
	scorer := llm.NewOpenAIScorer(openaiClient)

	autoScore := strings.ToLower(os.Getenv("AUTO_SCORE")) != "false"

	tournamentService := services.NewTournamentService(db)
	resultService := services.NewResultService(db, scorer)
	orchestrator := services.NewStreamOrchestrator(db, generator, scorer, autoScore)
	streamService := services.NewStreamService(orchestrator)

	handlers.SetupTournamentRoutes(app, tournamentService, resultService, streamService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := workers.StartScoreSweep(db, resultService)
	if sweep != nil {
		defer sweep.Shutdown()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ Auto-scoring after generation: %v", autoScore)
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
