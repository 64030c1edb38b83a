package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/lexroute/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexroute/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexroute/internal/adapters/driven/intent/lexicon"
	"github.com/custodia-labs/lexroute/internal/adapters/driven/intent/prototype"
	"github.com/custodia-labs/lexroute/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexroute/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lexroute/internal/adapters/driving/cli"
	"github.com/custodia-labs/lexroute/internal/connectors/filesystem"
	"github.com/custodia-labs/lexroute/internal/core/domain"
	"github.com/custodia-labs/lexroute/internal/core/ports/driven"
	"github.com/custodia-labs/lexroute/internal/core/services"
	"github.com/custodia-labs/lexroute/internal/extractors"
	"github.com/custodia-labs/lexroute/internal/extractors/ocr"
	"github.com/custodia-labs/lexroute/internal/extractors/pdf"
	"github.com/custodia-labs/lexroute/internal/extractors/plaintext"
	"github.com/custodia-labs/lexroute/internal/logger"
	"github.com/custodia-labs/lexroute/internal/postprocessors/chunker"
	"github.com/custodia-labs/lexroute/internal/responders"
	"github.com/custodia-labs/lexroute/internal/responders/casediscovery"
	"github.com/custodia-labs/lexroute/internal/responders/drafting"
	"github.com/custodia-labs/lexroute/internal/responders/legalaid"
)

// bootstrap loads the configuration at path and wires the services.
// Model clients are created lazily on first use.
func bootstrap(_ context.Context, path string) (*cli.Services, error) {
	store, err := file.NewSettingsStore(path)
	if err != nil {
		return nil, err
	}
	settings, err := store.Load()
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded configuration from %s", store.Path())
	return wire(settings)
}

// wire builds every service from settings.
func wire(settings domain.AppSettings) (*cli.Services, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	embedder := services.NewLazyEmbedder(func(context.Context) (driven.EmbeddingService, error) {
		return ai.CreateEmbeddingService(&settings.Embedding)
	})

	var generator driven.Generator
	var lazyGenerator *services.LazyGenerator
	if settings.LLM.IsConfigured() {
		lazyGenerator = services.NewLazyGenerator(func(context.Context) (driven.Generator, error) {
			return ai.CreateGenerator(&settings.LLM)
		})
		generator = lazyGenerator
	} else {
		logger.Debug("No text generator configured; answers will list retrieved passages")
	}

	checkExtractionTools()
	registry := extractors.NewRegistry(plaintext.New(), pdf.New(), ocr.New())
	chunks := chunker.New(
		chunker.WithChunkSize(settings.Chunking.Size),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)
	ingestor := services.NewIngestor(registry, chunks)

	snapshots, closeSnapshots, err := snapshotStore(settings.Index)
	if err != nil {
		return nil, err
	}

	closeAll := func() error {
		errs := []error{embedder.Close(), closeSnapshots()}
		if lazyGenerator != nil {
			errs = append(errs, lazyGenerator.Close())
		}
		return errors.Join(errs...)
	}

	svc, err := assemble(settings, embedder, generator, ingestor, snapshots)
	if err != nil {
		closeAll() //nolint:errcheck
		return nil, err
	}
	svc.Close = closeAll
	return svc, nil
}

func assemble(
	settings domain.AppSettings,
	embedder driven.EmbeddingService,
	generator driven.Generator,
	ingestor *services.Ingestor,
	snapshots driven.SnapshotStore,
) (*cli.Services, error) {
	index, err := services.NewIndex(embedder,
		services.WithSnapshotStore(snapshots),
		services.WithIngestor(ingestor),
		services.WithDiscoverer(filesystem.Discover),
	)
	if err != nil {
		return nil, err
	}

	model, err := intentModel(settings.Classifier, embedder)
	if err != nil {
		return nil, err
	}
	classifier, err := services.NewClassifier(model, settings.Classifier.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}
	decomposer, err := services.NewDecomposer(classifier, services.WithActionVerbs(settings.Decomposer.ActionVerbs))
	if err != nil {
		return nil, err
	}

	registered, err := newResponders(settings, generator)
	if err != nil {
		return nil, err
	}

	opts := []services.OrchestratorOption{
		services.WithConcurrency(settings.Orchestrator.Concurrency),
		services.WithStageHook(func(id string, stage domain.Stage) {
			logger.Debug("Query %s: %s", id, stage)
		}),
	}
	if settings.Orchestrator.DefaultIntent != "" {
		intent, _ := domain.ParseIntent(settings.Orchestrator.DefaultIntent)
		opts = append(opts, services.WithDefaultIntent(intent))
	}
	orchestrator, err := services.NewOrchestrator(decomposer, index, registered, opts...)
	if err != nil {
		return nil, err
	}

	return &cli.Services{
		Settings:  settings,
		Assistant: orchestrator,
		Index:     index,
		Ingest:    ingestor,
	}, nil
}

// snapshotStore opens the on-disk snapshot, or an in-memory one when no
// directory is configured.
func snapshotStore(s domain.IndexSettings) (driven.SnapshotStore, func() error, error) {
	if s.SnapshotDir == "" {
		logger.Warn("index.snapshot_dir is empty; the index will not survive this process")
		return memory.NewSnapshotStore(), func() error { return nil }, nil
	}
	store, err := sqlite.NewSnapshotStore(s.SnapshotDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening index snapshot: %w", err)
	}
	return store, store.Close, nil
}

func intentModel(s domain.ClassifierSettings, embedder driven.EmbeddingService) (driven.IntentModel, error) {
	switch s.Model {
	case domain.ClassifierModelEmbedding:
		return prototype.New(embedder)
	default:
		if s.LexiconPath != "" {
			return lexicon.Load(s.LexiconPath)
		}
		return lexicon.Default()
	}
}

func newResponders(settings domain.AppSettings, generator driven.Generator) ([]driven.Responder, error) {
	cd, err := casediscovery.New(generator, responders.ConfigFromSettings(settings.LLM, settings.Retrieval.CaseDiscoveryK))
	if err != nil {
		return nil, err
	}
	la, err := legalaid.New(generator, responders.ConfigFromSettings(settings.LLM, settings.Retrieval.LegalAidK))
	if err != nil {
		return nil, err
	}
	dr, err := drafting.New(generator, responders.ConfigFromSettings(settings.LLM, settings.Retrieval.DraftingK))
	if err != nil {
		return nil, err
	}
	return []driven.Responder{cd, la, dr}, nil
}

// checkExtractionTools notes missing external extractors. Documents
// that need them are skipped at build time.
func checkExtractionTools() {
	if err := pdf.CheckAvailable(); err != nil {
		logger.Debug("PDF extraction unavailable: %v", err)
	}
	if err := ocr.CheckAvailable(); err != nil {
		logger.Debug("Image OCR unavailable: %v", err)
	}
}
