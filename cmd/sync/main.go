// Manual sync trigger: one full cache-warming pass and exit. The api
// binary runs the same pass on its daily schedule.
package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nayzeok/tourist-tour-back/internal/adapters/images"
	"github.com/nayzeok/tourist-tour-back/internal/adapters/observability"
	redisad "github.com/nayzeok/tourist-tour-back/internal/adapters/redis"
	"github.com/nayzeok/tourist-tour-back/internal/adapters/travelline"
	"github.com/nayzeok/tourist-tour-back/internal/app"
	"github.com/nayzeok/tourist-tour-back/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	log.Info().
		Str("base", cfg.UpstreamBase).
		Strs("countries", cfg.Countries).
		Int("batch", cfg.SyncBatch).
		Msg("sync starting")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	tokens, err := travelline.NewTokenManager(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.TokenMargin, cache)
	if err != nil {
		log.Fatal().Err(err).Msg("token manager init failed")
	}
	client, err := travelline.NewClient(cfg.UpstreamBase, tokens, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("inventory client init failed")
	}

	proxy := images.New(cfg.ImageDir, cfg.ImageTimeout)
	content := app.NewContentService(client, cache, cfg.ContentTTL, cfg.ContentRetention, cfg.ContentFetchWin)
	geo := app.NewGeoService(client, cache, 2*cfg.ContentTTL)

	syncer := app.NewSyncer(content, geo, proxy, cfg.Countries, cfg.SyncInterval, cfg.SyncBatch, cfg.SyncPause, cfg.SyncImages)
	if err := syncer.RunOnce(ctx); err != nil {
		log.Fatal().Err(err).Msg("sync failed")
	}
	log.Info().Msg("sync completed")
}
