package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/config"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/database"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/index"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/llm"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/metrics"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/patterns"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/repositories"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/retry"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/services"
)

// app holds the configuration and collaborators of one command run.
// Backends are opened on first use so commands that never touch storage,
// the index or a model provider need none of them configured.
type app struct {
	version    string
	configPath string
	output     string

	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	cache   *patterns.Cache

	store     repositories.RuleStore
	index     services.RuleIndexService
	generator llm.Generator
	embedder  llm.Embedder

	closers []func() error
}

// ============================================================================
// Services
// ============================================================================

func (a *app) validator() services.RuleValidator {
	return services.NewRuleValidator(a.cache, a.logger)
}

func (a *app) compiler() services.PluginCompiler {
	return services.NewPluginCompiler(a.cache, a.metrics, a.logger)
}

// synthesisService builds the orchestrator. Storage and the index are only
// opened when the rules are to be persisted.
func (a *app) synthesisService(ctx context.Context, persist bool) (services.RuleSynthesisService, error) {
	var (
		store   repositories.RuleStore
		indexer services.RuleIndexer
	)
	if persist {
		var err error
		if store, err = a.ruleStore(ctx); err != nil {
			return nil, err
		}
		idx, err := a.ruleIndex(ctx)
		if err != nil {
			return nil, err
		}
		if idx != nil {
			indexer = idx
		}
	}

	return services.NewRuleSynthesisService(
		services.NewHeaderPatternLearner(a.cache, a.logger),
		services.NewShapeRegexSynthesizer(a.logger),
		services.NewCoverageDiagnostics(a.cache, a.logger),
		a.validator(),
		a.compiler(),
		store,
		indexer,
		a.metrics,
		a.logger,
	), nil
}

// ============================================================================
// Storage
// ============================================================================

// ruleStore opens and initializes the configured rule store.
func (a *app) ruleStore(ctx context.Context) (repositories.RuleStore, error) {
	if a.store != nil {
		return a.store, nil
	}

	var store repositories.RuleStore
	switch a.cfg.Storage.Backend {
	case "postgres":
		db, err := database.NewConnection(ctx, &database.Config{
			URL:            a.cfg.Database.ConnectionString(),
			MaxConnections: a.cfg.Database.MaxConnections,
			Retry:          retry.DefaultConfig(),
		})
		if err != nil {
			a.logger.Error("Failed to connect to rule database",
				zap.String("host", a.cfg.Database.Host),
				zap.String("error", logging.SanitizeError(err)))
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			db.Close()
			return nil
		})
		if err := database.Migrate(db, a.cfg.Database.MigrationsPath, a.logger); err != nil {
			return nil, err
		}
		store = repositories.NewPostgresRuleStore(db, a.logger)
	case "s3":
		bucket, err := repositories.NewMinioBucket(repositories.S3Config{
			Endpoint:  config.ResolveEndpointForDocker(a.cfg.ObjectStore.Endpoint),
			Region:    a.cfg.ObjectStore.Region,
			AccessKey: a.cfg.ObjectStore.AccessKey,
			SecretKey: a.cfg.ObjectStore.SecretKey,
			Bucket:    a.cfg.ObjectStore.Bucket,
			UseSSL:    a.cfg.ObjectStore.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		store = repositories.NewObjectRuleStore(bucket, a.cfg.ObjectStore.Prefix, a.logger)
	default:
		store = repositories.NewMemoryRuleStore(a.logger)
	}

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init %s rule store: %w", a.cfg.Storage.Backend, err)
	}
	a.closers = append(a.closers, store.Close)
	a.store = store
	return store, nil
}

// ============================================================================
// Similarity index
// ============================================================================

// ruleIndex returns the configured index service, or nil when the index is
// disabled. A memory index starts empty and is filled from the rule store.
func (a *app) ruleIndex(ctx context.Context) (services.RuleIndexService, error) {
	if a.index != nil {
		return a.index, nil
	}

	var (
		vectors index.VectorStore
		warm    bool
	)
	switch a.cfg.Index.Backend {
	case "none":
		return nil, nil
	case "redis":
		client, err := database.NewRedisClient(ctx, &a.cfg.Index.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		vectors = index.NewRedisStore(client, a.cfg.Index.KeyPrefix, a.logger)
	default:
		vectors = index.NewMemoryStore()
		warm = true
	}

	svc := services.NewRuleIndexService(a.llmEmbedder(), vectors, a.cfg.Index.SimilarityThreshold, a.logger)
	a.index = svc
	if warm {
		if err := a.warmIndex(ctx, svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func (a *app) warmIndex(ctx context.Context, svc services.RuleIndexService) error {
	store, err := a.ruleStore(ctx)
	if err != nil {
		return err
	}
	rules, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list rules for index: %w", err)
	}
	for _, rule := range rules {
		if err := svc.Reindex(ctx, rule); err != nil {
			return err
		}
	}
	a.logger.Debug("Built in-memory rule index", zap.Int("rules", len(rules)))
	return nil
}

// ============================================================================
// Model providers
// ============================================================================

func (a *app) llmGenerator() (llm.Generator, error) {
	if a.generator != nil {
		return a.generator, nil
	}
	if a.cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required for the %s provider", a.cfg.LLM.Provider)
	}
	gen, err := llm.NewGenerator(a.cfg.LLM, a.logger)
	if err != nil {
		return nil, err
	}
	a.generator = gen
	return gen, nil
}

func (a *app) llmEmbedder() llm.Embedder {
	if a.embedder == nil {
		a.embedder = llm.NewEmbedder(a.cfg.LLM, a.logger)
	}
	return a.embedder
}
