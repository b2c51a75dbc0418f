package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/tabula/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/tabula/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/tabula/internal/adapters/storage/memory"
	"github.com/PabloGalante/tabula/internal/app/conversation"
	"github.com/PabloGalante/tabula/internal/config"
	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/models"
	"github.com/PabloGalante/tabula/internal/observability"
)

const defaultGeminiModel = "gemini-2.5-flash"

// buildService wires the completion provider and the stores chosen by cfg.
// The returned func releases backend clients.
func buildService(ctx context.Context, cfg *config.Config) (*conversation.Service, func(), error) {
	log := observability.Logger()
	cleanup := func() {}

	opts := conversation.Options{
		DefaultModel:       cfg.DefaultModel,
		DefaultTemperature: cfg.DefaultTemperature,
	}

	var completion domain.CompletionClient
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("init openai client: %w", err)
		}
		log.Info("using OpenAI completion client", "base_url", cfg.OpenAIBaseURL)
		completion = client

	case config.ProviderVertex:
		if !strings.HasPrefix(opts.DefaultModel, "gemini") {
			opts.DefaultModel = defaultGeminiModel
		}
		client, err := llm.NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, opts.DefaultModel)
		if err != nil {
			return nil, nil, fmt.Errorf("init vertex client: %w", err)
		}
		log.Info("using Vertex AI completion client", "project", cfg.GCPProjectID, "location", cfg.GCPLocation)
		completion = client

	default:
		log.Info("using mock completion client")
		completion = llm.NewMockLLM()
	}

	var (
		sessionStore domain.SessionStore
		messageStore domain.MessageStore
	)
	switch cfg.StorageBackend {
	case config.StorageFirestore:
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("init firestore store: %w", err)
		}
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)

		// 1 store, implements 2 interfaces
		sessionStore = fsStore
		messageStore = fsStore
		cleanup = func() {
			if err := fsStore.Close(); err != nil {
				log.Warn("closing firestore client", "error", err)
			}
		}

	default:
		log.Info("using in-memory storage")
		sessionStore = memstore.NewSessionStore()
		messageStore = memstore.NewMessageStore()
	}

	// Working tables never leave the process.
	workspaces := memstore.NewWorkspaceStore()

	svc := conversation.NewService(completion, sessionStore, messageStore, workspaces, models.Default(), opts)
	return svc, cleanup, nil
}
