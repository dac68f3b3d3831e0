package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"agenticmd/internal/config"
	"agenticmd/internal/core"
	"agenticmd/internal/db"
	httpserver "agenticmd/internal/http"
	"agenticmd/internal/kb"
	"agenticmd/internal/llm"
	"agenticmd/internal/render"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.OpenAIKey == "" {
		log.Fatal("OPENAI_API_KEY must be set")
	}

	// The stage registry is static; validate it before serving anything so
	// a bad consumption list fails fast instead of deadlocking a session.
	registry := core.Stages(cfg.FollowUpBudget)
	if err := core.ValidateRegistry(registry); err != nil {
		log.Fatalf("invalid stage registry: %v", err)
	}

	// Session store: Postgres when configured, in-memory otherwise.
	var store db.SessionStore
	var notifier *db.Notifier
	if cfg.DatabaseURL != "" {
		dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := dbConn.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping database: %v", err)
		}
		if err := db.Migrate(context.Background(), dbConn); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		store = db.NewRepository(dbConn)
		notifier = db.NewNotifier(dbConn, cfg.DatabaseURL, db.DefaultNotifyChannel)
	} else {
		log.Print("DATABASE_URL not set; sessions will not survive restarts")
		store = db.NewMemoryStore()
	}

	// Medication knowledge base, hot-reloaded on file changes.
	var knowledge core.KnowledgeBase
	if cfg.KnowledgeDir != "" {
		kbStore := kb.NewStore(cfg.KnowledgeDir, 3)
		if err := kbStore.Reload(); err != nil {
			log.Fatalf("failed to load knowledge base: %v", err)
		}
		log.Printf("knowledge base loaded: %d excerpts from %s", kbStore.Len(), cfg.KnowledgeDir)
		go func() {
			if err := kbStore.Watch(context.Background()); err != nil && err != context.Canceled {
				log.Println("knowledge base watcher stopped:", err)
			}
		}()
		knowledge = kbStore
	}

	client := llm.NewOpenAIClientWith(cfg.OpenAIKey, cfg.Model)
	exec := core.NewExecutor(client, knowledge)
	exec.Attempts = cfg.RetryAttempts
	exec.Backoff = time.Duration(cfg.RetryBackoff)

	srv, err := httpserver.NewServer(store, registry, exec, render.NewTextRenderer("PRESCRIPTION"), notifier)
	if err != nil {
		log.Fatalf("failed to construct server: %v", err)
	}
	log.Printf("Listening on %s", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
