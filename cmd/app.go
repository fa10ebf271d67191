package cmd

import (
	"context"
	"fmt"

	"car-sales/cache"
	"car-sales/config"
	"car-sales/llm"
	"car-sales/services"
	"car-sales/storage"
	"car-sales/utils"
)

// app holds the components shared by the query-side commands.
type app struct {
	store     *storage.SQLStore
	degraded  *storage.CSVSource
	cache     cache.Client
	queries   *services.QueryService
	insights  *services.InsightService
	assistant *services.Assistant
}

// openStore opens the configured primary store without touching it.
func openStore(c *config.Config) (*storage.SQLStore, error) {
	switch c.StoreDriver {
	case config.DriverSQLite:
		return storage.NewSQLiteStore(c.SQLitePath)
	case config.DriverPostgres:
		return storage.NewPostgresStore(c.DSN())
	}
	return nil, fmt.Errorf("unknown store driver %q", c.StoreDriver)
}

// openCache connects to Redis when configured. A missing or unreachable
// server leaves translations uncached.
func openCache(ctx context.Context, c *config.Config, log *utils.Logger) cache.Client {
	if c.RedisAddr == "" {
		return cache.Noop{}
	}
	rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	if err != nil {
		log.Warn("[cache] Redis unavailable, translations will not be cached: %v", err)
		return cache.Noop{}
	}
	return rc
}

func newApp(ctx context.Context, c *config.Config, log *utils.Logger) (*app, error) {
	store, err := openStore(c)
	if err != nil {
		return nil, err
	}

	a := &app{
		store:    store,
		degraded: storage.NewCSVSource(c.CSVPath),
		cache:    openCache(ctx, c, log),
		insights: services.NewInsightService(log),
	}
	a.queries = services.NewQueryService(a.store, a.degraded, services.Limits{
		Filter:    c.FilterLimit,
		Ask:       c.AskLimit,
		Recommend: c.RecommendLimit,
	}, log)

	client := llm.NewClient(c.LLMBaseURL, c.LLMAPIKey, c.LLMModel)
	if c.LLMEnabled() {
		log.Info("[llm] Using model %s", client.Model())
	} else {
		log.Warn("[llm] No API key configured, free-text answers use local fallbacks")
	}
	a.assistant = services.NewAssistant(client, a.store, a.queries, a.insights, a.cache, c.CacheTTL(), log)
	return a, nil
}

func (a *app) Close() {
	_ = a.cache.Close()
	_ = a.store.Close()
}
