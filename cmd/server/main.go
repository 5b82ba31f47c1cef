package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qrbites/api/internal/ai"
	"github.com/qrbites/api/internal/config"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/menuimport"
	"github.com/qrbites/api/internal/router"
	"github.com/qrbites/api/internal/service"
	"github.com/qrbites/api/internal/ws"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Unable to ping redis: %v", err)
	}
	defer rdb.Close()

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	sessions := service.NewSessions(service.NewRedisKV(rdb), cfg.SessionBudget, cfg.ServedWindow)

	sweeper := service.NewSweeper(pool, func(db database.DBTX) service.SweepStore {
		return database.New(db)
	}, cfg.SweepInterval)
	go sweeper.Run(ctx)

	var menuParser ai.MenuParser
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiParser(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Unable to init Gemini parser: %v", err)
		}
		defer gemini.Close()
		menuParser = gemini
		log.Println("Menu importer: Gemini")
	} else {
		menuParser = menuimport.NewParser()
		log.Println("Menu importer: deterministic line parser (no GEMINI_API_KEY)")
	}

	r := router.New(cfg, queries, pool, hub, sessions, sweeper, menuParser)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
