package workers

import (
	"context"
	"log"
	"os"
	"time"

	"llm-tournament-widget/models"
	"llm-tournament-widget/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StartScoreSweep periodically auto-scores any results left unscored, e.g.
// because scoring failed after generation or results came in manually.
// Opt-in: does nothing unless SCORE_SWEEP_INTERVAL (a Go duration, "10m") is
// set. Returns the scheduler so main can shut it down.
func StartScoreSweep(db *gorm.DB, resultService *services.ResultService) gocron.Scheduler {
	intervalStr := os.Getenv("SCORE_SWEEP_INTERVAL")
	if intervalStr == "" {
		return nil
	}
	interval, err := time.ParseDuration(intervalStr)
	if err != nil || interval <= 0 {
		log.Printf("[ScoreSweep] Invalid SCORE_SWEEP_INTERVAL %q — sweep disabled", intervalStr)
		return nil
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			runSweep(ctx, db, resultService)
		}),
	)

	log.Printf("[ScoreSweep] Sweeping unscored results every %s", interval)
	return sched
}

func runSweep(ctx context.Context, db *gorm.DB, resultService *services.ResultService) {
	var tournamentIDs []string
	err := db.Model(&models.Result{}).
		Where("score IS NULL").
		Distinct("tournament_id").
		Pluck("tournament_id", &tournamentIDs).Error
	if err != nil {
		log.Printf("[ScoreSweep] DB error: %v", err)
		return
	}

	for _, id := range tournamentIDs {
		var tournament models.Tournament
		if err := db.First(&tournament, "id = ?", id).Error; err != nil {
			continue
		}
		scored, failed, total, err := resultService.ScoreUnscored(ctx, &tournament)
		if err != nil {
			log.Printf("[ScoreSweep] Failed sweeping tournament %s: %v", id, err)
			continue
		}
		if total > 0 {
			log.Printf("[ScoreSweep] Tournament %s: scored %d/%d (%d failed)", id, scored, total, failed)
		}
	}
}
