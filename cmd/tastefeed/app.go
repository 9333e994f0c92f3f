package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tastefeed/internal/config"
	"github.com/kailas-cloud/tastefeed/internal/db"
	dbBadger "github.com/kailas-cloud/tastefeed/internal/db/badger"
	dbValkey "github.com/kailas-cloud/tastefeed/internal/db/valkey"
	"github.com/kailas-cloud/tastefeed/internal/domain"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
	"github.com/kailas-cloud/tastefeed/internal/metrics"
	articlerepo "github.com/kailas-cloud/tastefeed/internal/repository/article"
	"github.com/kailas-cloud/tastefeed/internal/repository/embcache"
	fingerprintrepo "github.com/kailas-cloud/tastefeed/internal/repository/fingerprint"
	openaiEmb "github.com/kailas-cloud/tastefeed/internal/transport/openai"
	backfilluc "github.com/kailas-cloud/tastefeed/internal/usecase/backfill"
	embeddinguc "github.com/kailas-cloud/tastefeed/internal/usecase/embedding"
	fingerprintuc "github.com/kailas-cloud/tastefeed/internal/usecase/fingerprint"
	healthuc "github.com/kailas-cloud/tastefeed/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/tastefeed/internal/usecase/recommend"
	tasteuc "github.com/kailas-cloud/tastefeed/internal/usecase/taste"
)

// app is the composition root shared by serve and backfill.
type app struct {
	store        *dbValkey.Store
	printStore   db.BlobStore
	articles     *articlerepo.Repo
	fingerprints *fingerprintrepo.Repo
	models       *fingerprintuc.ModelCache
	generator    *fingerprintuc.Service
	taste        *tasteuc.Service
	recommend    *recommenduc.Service
	backfill     *backfilluc.Service
	health       *healthuc.Service
	closers      []func()
}

// newApp connects storage and wires every service. The encoding model is not
// loaded here; the model cache loads it on first use.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterFingerprintMetrics()

	a := &app{}

	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		a.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	a.printStore = store
	if cfg.Fingerprints.Backend == config.BackendBadger {
		bs, err := dbBadger.Open(dbBadger.Config{Path: cfg.Fingerprints.Path, InMemory: cfg.Fingerprints.InMemory})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open fingerprint store: %w", err)
		}
		a.printStore = bs
		a.closers = append(a.closers, bs.Close)
		logger.Info("Fingerprints stored in badger",
			zap.String("path", cfg.Fingerprints.Path),
			zap.Bool("in_memory", cfg.Fingerprints.InMemory),
		)
	}

	prefix := cfg.Storage.KeyPrefix
	a.articles = articlerepo.New(store, prefix)
	a.fingerprints = fingerprintrepo.New(a.printStore, prefix,
		metrics.FingerprintSearchDuration, metrics.FingerprintsScannedTotal)

	a.models = fingerprintuc.NewModelCache(encoderLoader(cfg.Embedding, store, prefix, logger), logger)
	a.generator = fingerprintuc.New(a.models, a.fingerprints, a.articles, metrics.FingerprintsGeneratedTotal, logger)

	rc := cfg.Recommend
	a.taste = tasteuc.New(a.articles, a.fingerprints, tasteuc.Config{
		DefaultClusters: rc.Clusters,
		MaxLikes:        rc.MaxLikes,
		KMeans: tasteuc.KMeansConfig{
			Seed:     rc.KMeans.Seed,
			Restarts: rc.KMeans.Restarts,
			MaxIter:  rc.KMeans.MaxIter,
			Tol:      rc.KMeans.Tolerance,
		},
	}, logger)
	a.recommend = recommenduc.New(a.articles, a.taste, a.fingerprints, a.articles, recommenduc.Config{
		DefaultLimit:      rc.DefaultLimit,
		MinLikes:          rc.MinLikes,
		Clusters:          rc.Clusters,
		SearchConcurrency: rc.SearchConcurrency,
	}, metrics.RecommendationsTotal, logger)
	a.backfill = backfilluc.New(a.articles, a.fingerprints, a.generator, logger)

	components := []healthuc.Component{
		{Name: "database", Checker: healthuc.CheckFunc(store.Ping)},
		{Name: "model", Checker: healthuc.CheckFunc(a.models.HealthCheck)},
	}
	if cfg.Fingerprints.Backend == config.BackendBadger {
		components = append(components,
			healthuc.Component{Name: "fingerprints", Checker: healthuc.CheckFunc(a.printStore.Ping)})
	}
	a.health = healthuc.New(logger, components...)

	return a, nil
}

// Close releases storage in reverse open order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// encoderLoader assembles the decorator chain:
// OpenAI (dimension probe) -> Breaker -> Instrumented -> Cached.
func encoderLoader(
	ec config.EmbeddingConfig, store *dbValkey.Store, prefix string, logger *zap.Logger,
) fingerprintuc.Loader {
	return func(ctx context.Context) (domain.Embedder, error) {
		base, err := openaiEmb.Load(ctx, &openaiEmb.Config{
			APIKey:   ec.APIKey,
			BaseURL:  ec.BaseURL,
			Model:    ec.Model,
			User:     ec.User,
			Provider: ec.Provider,
			Timeout:  time.Duration(ec.TimeoutSec) * time.Second,
			Logger:   logger,
		}, fp.Dim)
		if err != nil {
			return nil, err
		}

		var enc domain.Embedder = openaiEmb.NewBreakerEmbedder(base, openaiEmb.BreakerConfig{
			Name:             ec.Provider,
			MaxRequests:      ec.Breaker.MaxRequests,
			Interval:         time.Duration(ec.Breaker.IntervalSec) * time.Second,
			Timeout:          time.Duration(ec.Breaker.OpenTimeoutSec) * time.Second,
			FailureThreshold: ec.Breaker.FailureThreshold,
		}, logger)

		enc = embeddinguc.NewInstrumentedEmbedder(
			enc, ec.Provider, ec.Model, time.Duration(ec.SlowCallMs)*time.Millisecond, logger,
		)

		if ec.Cache {
			enc = embcache.New(enc, store, prefix, ec.Model, metrics.EmbeddingCacheTotal, logger)
		}
		return enc, nil
	}
}
