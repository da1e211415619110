package cmd

import (
	"context"
	"fmt"

	"github.com/LovationAdmin/expensewise-api/config"
	"github.com/LovationAdmin/expensewise-api/services"
	"github.com/LovationAdmin/expensewise-api/store"

	"github.com/redis/go-redis/v9"
)

// openStore connects the configured backend. For PostgreSQL the embedded
// migrations run first when AUTO_MIGRATE is set.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.DataBackend {
	case config.BackendPostgres:
		if c.AutoMigrate {
			if err := config.RunMigrations(c.DatabaseURL); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
			log.Info("Database migrations applied")
		}
		db, err := config.InitDB(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to PostgreSQL")
		return store.NewPostgresStore(db), nil

	case config.BackendMongo:
		return openMongo(ctx, c.MongoURI, c.MongoDatabase)

	case config.BackendMemory:
		log.Warn("Using the in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown data backend %q", c.DataBackend)
}

func openMongo(ctx context.Context, uri, database string) (*store.MongoStore, error) {
	client, err := config.ConnectMongo(ctx, uri)
	if err != nil {
		return nil, err
	}
	ms := store.NewMongoStore(client, database)
	if err := ms.EnsureIndexes(ctx); err != nil {
		_ = ms.Close()
		return nil, fmt.Errorf("ensure mongo indexes: %w", err)
	}
	log.WithField("database", database).Info("Connected to MongoDB")
	return ms, nil
}

type aiStack struct {
	gen    services.TextGenerator
	icons  services.IconSuggester
	rdb    *redis.Client
	closer func()
}

func (a *aiStack) Close() {
	if a.closer != nil {
		a.closer()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// buildAI wires the selected text generator behind the icon categorizer
// and its Redis cache. Without a key both stay nil and the ledger falls
// back to the default icon.
func buildAI(ctx context.Context, c *config.Config) (*aiStack, error) {
	stack := &aiStack{}
	if !c.AIEnabled() {
		log.WithField("provider", c.AIProvider).Warn("AI provider not configured, icon suggestions and analysis disabled")
		return stack, nil
	}

	switch c.AIProvider {
	case config.ProviderGemini:
		g, err := services.NewGeminiService(ctx, c.GeminiAPIKey, c.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		stack.gen = g
		stack.closer = func() { _ = g.Close() }
	case config.ProviderClaude:
		stack.gen = services.NewClaudeAIService(c.AnthropicAPIKey, c.ClaudeModel, log)
	}

	var cache services.IconCache
	if stack.rdb = config.ConnectRedis(ctx, c, log); stack.rdb != nil {
		cache = services.NewRedisIconCache(stack.rdb, c.IconCacheTTL)
	}
	stack.icons = services.NewCategorizerService(services.NewAICategorizer(stack.gen), cache, log)
	return stack, nil
}

func newLedger(c *config.Config, st store.Store, icons services.IconSuggester) (*services.LedgerService, error) {
	budget, err := c.MonthlyBudgetDefault()
	if err != nil {
		return nil, err
	}
	return services.NewLedgerService(st, icons, services.LedgerConfig{
		DefaultMonthlyBudget: budget,
		IconSuggestTimeout:   c.IconSuggestTimeout,
	}, log), nil
}
