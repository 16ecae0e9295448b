package utils

import (
	"context"
	"log"
	"time"

	"academy/services/video"

	"github.com/robfig/cron/v3"
)

// logAssetScheduler logs scheduler events with timestamp
func logAssetScheduler(message string) {
	log.Printf("[ASSET-SCHEDULER %s] %s", time.Now().Format(time.RFC3339), message)
}

// StartAssetScheduler polls the video provider for assets still preparing and
// records their playback ids once ready. Mux ingests asynchronously, so a
// created asset usually has no playback id at creation time.
func StartAssetScheduler(coordinator *video.Coordinator) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cancel()

		if err := coordinator.RefreshPendingAssets(ctx); err != nil {
			logAssetScheduler("Error refreshing pending assets: " + err.Error())
		}
	})
	if err != nil {
		log.Fatalf("Failed to register asset scheduler: %v", err)
	}

	c.Start()
	logAssetScheduler("Asset scheduler started")
	return c
}
