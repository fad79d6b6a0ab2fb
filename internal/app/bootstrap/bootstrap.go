// Package bootstrap wires the scheduling stack from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/availability"
	"github.com/wolfman30/clinic-ai-scheduler/internal/booking"
	"github.com/wolfman30/clinic-ai-scheduler/internal/calendly"
	appconfig "github.com/wolfman30/clinic-ai-scheduler/internal/config"
	"github.com/wolfman30/clinic-ai-scheduler/internal/dialog"
	"github.com/wolfman30/clinic-ai-scheduler/internal/extract"
	"github.com/wolfman30/clinic-ai-scheduler/internal/notify"
	"github.com/wolfman30/clinic-ai-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
	"github.com/wolfman30/clinic-ai-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-ai-scheduler/internal/store"
	"github.com/wolfman30/clinic-ai-scheduler/pkg/logging"
)

// App holds the wired components and their teardown.
type App struct {
	Engine  *dialog.Engine
	Metrics *metrics.SchedulerMetrics

	closers []func()
}

// Close releases database and client handles.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build wires the dialogue engine from config. Missing credentials degrade
// to local stand-ins (rule extraction, static availability, stub email) so
// the system runs everywhere; production deployments configure the real
// services.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	app := &App{Metrics: metrics.NewSchedulerMetrics(nil)}
	loc := cfg.Location()
	validator := schema.NewValidator(loc, nil)

	extractor, err := buildExtractor(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	reconciler := availability.New(provider, availability.Config{
		HorizonDays:      cfg.HorizonDays,
		ToleranceMinutes: cfg.ToleranceMinutes,
		TopK:             cfg.TopKAlternatives,
	}, loc, logger)

	ledger, err := buildLedger(cfg, logger, app)
	if err != nil {
		return nil, err
	}
	committer := booking.NewCommitter(provider, ledger, logger).
		WithRetryPolicy(cfg.CommitMaxAttempts, cfg.CommitBaseDelay)

	sender, err := buildEmailSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	notifier := notify.NewService(sender, cfg.ClinicName, loc, logger)

	params := dialog.EngineParams{
		Machine:    dialog.NewMachine(validator, cfg.ConfidenceThreshold, cfg.HorizonDays),
		Extractor:  extractor,
		Reconciler: reconciler,
		Committer:  committer,
		Notifier:   notifier,
		Metrics:    app.Metrics,
		Location:   loc,
		Logger:     logger,
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open database: %w", err)
		}
		app.closers = append(app.closers, func() { _ = db.Close() })
		params.Transcripts = store.NewTranscriptStore(db)

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open pgx pool: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		params.Bookings = store.NewBookingStore(pool)
	} else {
		logger.Warn("no DATABASE_URL configured; transcripts and bookings will not be persisted")
	}

	if cfg.ArchiveBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		params.Archiver = store.NewArchiver(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger.Logger)
	}

	app.Engine = dialog.NewEngine(params)
	return app, nil
}

func buildExtractor(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (extract.Extractor, error) {
	rules := extract.NewRuleExtractor(cfg.Location(), nil)

	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("no Gemini API key configured; using rule-based extraction")
			return rules, nil
		}
		client, err := extract.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		var llm extract.LLMClient = client
		if cfg.BedrockFallback && cfg.BedrockModelID != "" {
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
			if err != nil {
				return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
			}
			bedrock := extract.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
			llm = extract.NewFallbackLLMClient(client, bedrock, cfg.BedrockModelID, logger.Logger)
			logger.Info("extraction fallback enabled", "fallback_model", cfg.BedrockModelID)
		}
		return extract.NewLLMExtractor(llm, cfg.GeminiModel, rules, logger.Logger), nil
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		client := extract.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		return extract.NewLLMExtractor(client, cfg.BedrockModelID, rules, logger.Logger), nil
	default:
		return rules, nil
	}
}

func buildProvider(cfg *appconfig.Config, logger *logging.Logger) (scheduling.Provider, error) {
	if cfg.CalendlyToken == "" {
		logger.Warn("no Calendly token configured; using static in-memory availability")
		return scheduling.NewStaticProvider(cfg.Location()), nil
	}

	rawMap, err := cfg.EventTypeMap()
	if err != nil {
		return nil, err
	}
	eventTypes := make(map[appointment.Specialty]string, len(rawMap))
	for name, uri := range rawMap {
		sp, ok := appointment.ParseSpecialty(name)
		if !ok {
			return nil, fmt.Errorf("bootstrap: unknown specialty %q in CALENDLY_EVENT_TYPE_MAP", name)
		}
		eventTypes[sp] = uri
	}

	client := calendly.NewClient(cfg.CalendlyToken, logger)
	return calendly.NewAdapter(client, eventTypes, logger), nil
}

func buildLedger(cfg *appconfig.Config, logger *logging.Logger, app *App) (booking.Ledger, error) {
	opts := &redis.Options{Addr: cfg.RedisAddr}
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: parse REDIS_URL: %w", err)
		}
		opts = parsed
	}
	if opts.Addr == "" {
		return booking.NewMemoryLedger(), nil
	}
	client := redis.NewClient(opts)
	app.closers = append(app.closers, func() { _ = client.Close() })
	logger.Info("using redis booking ledger", "addr", opts.Addr)
	return booking.NewRedisLedger(client), nil
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("no SendGrid API key configured; using stub email sender")
			return notify.NewStubEmailSender(logger), nil
		}
		return sender, nil
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger), nil
	default:
		return notify.NewStubEmailSender(logger), nil
	}
}
