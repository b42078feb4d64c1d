package main

import (
	"net/http"
	"os"

	"github.com/roeiex74/agno-ollama-chatbot/internal/agent"
	"github.com/roeiex74/agno-ollama-chatbot/internal/config"
	"github.com/roeiex74/agno-ollama-chatbot/internal/history"
	"github.com/roeiex74/agno-ollama-chatbot/internal/llm"
	"github.com/roeiex74/agno-ollama-chatbot/internal/logger"
	"github.com/roeiex74/agno-ollama-chatbot/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	var store history.Store
	switch cfg.MemoryBackend {
	case config.BackendSQLite:
		store, err = history.NewSQLiteStore(cfg.MemoryPath)
		if err != nil {
			logger.L.Error("failed to open history store", "path", cfg.MemoryPath, "error", err)
			os.Exit(1)
		}
	default:
		store = history.NewMemoryStore()
	}
	defer store.Close()

	client := llm.NewClient(cfg.OllamaHost)
	generator := llm.NewGenerator(client, cfg.OllamaModel, cfg.ModelTimeout())
	titler := agent.NewTitler(generator, cfg.TitleTimeout())
	bot := agent.New(store, generator, titler, cfg.OllamaModel, cfg.MaxHistory)
	srv := server.New(cfg, bot, store)

	addr := cfg.Addr()
	logger.L.Info("starting server",
		"address", addr,
		"environment", cfg.Env,
		"model", cfg.OllamaModel,
		"backend", store.Kind(),
	)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.L.Error("server exited", "error", err)
		os.Exit(1)
	}
}
