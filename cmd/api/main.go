package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	server "github.com/nayzeok/tourist-tour-back/internal/adapters/http_server"
	"github.com/nayzeok/tourist-tour-back/internal/adapters/images"
	"github.com/nayzeok/tourist-tour-back/internal/adapters/observability"
	redisad "github.com/nayzeok/tourist-tour-back/internal/adapters/redis"
	"github.com/nayzeok/tourist-tour-back/internal/adapters/travelline"
	"github.com/nayzeok/tourist-tour-back/internal/app"
	"github.com/nayzeok/tourist-tour-back/internal/shared"
)

func main() {
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.Serve()

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
	search := app.NewSearchAggregator(client, cfg.SearchChunk)
	dedup := app.NewDeduplicator(client, cache, cfg.PricingTTL)
	builder := app.NewOfferBuilder(proxy.TransformURL)
	geo := app.NewGeoService(client, cache, 2*cfg.ContentTTL)
	listing := app.NewListingService(client, content, search, dedup, builder)

	syncer := app.NewSyncer(content, geo, proxy, cfg.Countries, cfg.SyncInterval, cfg.SyncBatch, cfg.SyncPause, cfg.SyncImages)
	go syncer.Run(context.Background())

	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Images: proxy, Listing: listing, Geo: geo})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
