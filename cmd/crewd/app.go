package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/approval"
	"github.com/fyrsmithlabs/crewd/internal/config"
	"github.com/fyrsmithlabs/crewd/internal/contextmap"
	"github.com/fyrsmithlabs/crewd/internal/embeddings"
	"github.com/fyrsmithlabs/crewd/internal/loader"
	"github.com/fyrsmithlabs/crewd/internal/logging"
	"github.com/fyrsmithlabs/crewd/internal/notify"
	"github.com/fyrsmithlabs/crewd/internal/pipeline"
	"github.com/fyrsmithlabs/crewd/internal/project"
	"github.com/fyrsmithlabs/crewd/internal/vectorstore"
)

// app wires the services a command needs from configuration. The vector
// store is only opened when asked for: most commands never touch the
// semantic index and should not require a running embedder.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *project.Store
	cmap   *contextmap.Map

	vectors vectorstore.Store
}

func newApp(withVectors bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	store, err := project.NewStore(cfg.Storage.StateDir, logger)
	if err != nil {
		return nil, err
	}

	cmap, err := contextmap.Load(cfg.Storage.ContextMapPath)
	if err != nil {
		return nil, err
	}
	if err := cmap.Validate(pipeline.Consumers(pipeline.DevStages(), pipeline.DSStages())); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: store, cmap: cmap}

	if withVectors {
		embedder, err := embeddings.NewProvider(embeddings.ProviderConfig{
			Provider: cfg.Embeddings.Provider,
			BaseURL:  cfg.Embeddings.BaseURL,
			Model:    cfg.Embeddings.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
		vectors, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
			Path:     cfg.Vector.Path,
			Compress: cfg.Vector.Compress,
		}, embedder, logger)
		if err != nil {
			return nil, fmt.Errorf("opening vector store: %w", err)
		}
		a.vectors = vectors
	}

	return a, nil
}

func (a *app) close() {
	if a.vectors != nil {
		if err := a.vectors.Close(); err != nil {
			a.logger.Warn("failed to close vector store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// gate builds the human checkpoint gate: webhook notification when
// configured, log fallback always, decision over the terminal.
func (a *app) gate() (*approval.Gate, error) {
	channels := []notify.Notifier{}
	if a.cfg.Notify.WebhookURL != "" {
		wh, err := notify.NewWebhookNotifier(notify.WebhookConfig{URL: a.cfg.Notify.WebhookURL})
		if err != nil {
			return nil, err
		}
		channels = append(channels, wh)
	}
	channels = append(channels, notify.NewLogNotifier(a.logger))

	approver := approval.NewTerminalApprover(os.Stdin, os.Stdout)
	return approval.NewGate(approver, notify.NewChain(a.logger, channels...), a.store, a.logger)
}

// newLoader builds the context loader over whatever index is open.
func (a *app) newLoader() *loader.Loader {
	return loader.New(a.cmap, a.vectors, a.cfg.Extraction, a.logger)
}

// indexer returns the semantic indexer, or nil when no vector store is open.
func (a *app) indexer() *loader.Indexer {
	if a.vectors == nil {
		return nil
	}
	ix, err := loader.NewIndexer(a.vectors, a.cfg.Extraction, a.logger)
	if err != nil {
		a.logger.Warn("failed to create indexer", zap.Error(err))
		return nil
	}
	return ix
}

// loadProject resolves a full or prefixed project ID.
func (a *app) loadProject(id string) (*project.Context, error) {
	return a.store.LoadByPrefix(id)
}
