// cmd/loan-advisor/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"loan-advisor/internal/common/audit"
	"loan-advisor/internal/common/aws"
	"loan-advisor/internal/common/camunda"
	"loan-advisor/internal/common/config"
	"loan-advisor/internal/common/database"
	"loan-advisor/internal/common/genai"
	httpx "loan-advisor/internal/common/http"
	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/common/observability"

	ci "loan-advisor/internal/workers/loan/credit-improvement"
	ed "loan-advisor/internal/workers/loan/eligibility-decision"
	ee "loan-advisor/internal/workers/loan/empathy-explanation"
	orch "loan-advisor/internal/workers/loan/orchestrator"
	re "loan-advisor/internal/workers/loan/risk-estimation"
)

// retryWithBackoff runs operation up to maxRetries times, doubling the delay between attempts.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("Failed to load config", zap.Error(err))
	}

	zapLog, err := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		bootLog.Fatal("Failed to build logger", zap.Error(err))
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loan advisor",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	diagnostics, syncDiagnostics, err := logger.NewDiagnostics(cfg.Diagnostics.Path)
	if err != nil {
		zapLog.Fatal("Failed to open diagnostics log", zap.Error(err), zap.String("path", cfg.Diagnostics.Path))
	}
	defer syncDiagnostics()

	// --- Metrics & Tracing ---
	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	tracerProvider, shutdownTracing, err := observability.NewTracerProvider(cfg.App.Name, cfg.App.Version, cfg.Tracing.Endpoint, cfg.Tracing.Enabled)
	if err != nil {
		zapLog.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// --- Postgres (primary audit store) ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		client, connErr := database.NewPostgres(cfg.Database.Postgres)
		if connErr != nil {
			return connErr
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if connErr = client.Ping(ctx); connErr != nil {
			client.Close()
			return connErr
		}
		pg = client
		return nil
	}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	readiness := []httpx.Dependency{pg}

	// --- Risk model ---
	riskCfg := re.LoadConfig(cfg)
	model, err := re.LoadModel(riskCfg.ArtifactPath)
	if err != nil {
		zapLog.Fatal("Failed to load risk model", zap.Error(err), zap.String("path", riskCfg.ArtifactPath))
	}
	zapLog.Info("Risk model loaded", zap.String("version", model.Version))

	var estimator re.Estimator = re.NewModelEstimator(model, log)

	if riskCfg.CacheEnabled {
		rdb := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return rdb.Ping(ctx)
		}, 3, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("Redis unavailable, risk cache disabled", zap.Error(err))
			rdb.Close()
		} else {
			defer rdb.Close()
			// keys are scoped to the model version so a new artifact never reads stale scores
			estimator = re.NewCachedEstimator(estimator, rdb.Client, "risk:"+model.Version+":", riskCfg.CacheTTL, log)
			readiness = append(readiness, rdb)
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Text generation ---
	generator, err := genai.New(cfg.APIs)
	if err != nil {
		zapLog.Fatal("Failed to initialize text generation", zap.Error(err))
	}

	// --- Audit trail ---
	pgStore, err := audit.NewPostgresStore(pg.DB, cfg.Audit.Table)
	if err != nil {
		zapLog.Fatal("Invalid audit table", zap.Error(err))
	}

	var secondaries []audit.Sink
	if cfg.Audit.Elasticsearch.Enabled {
		esClient, esErr := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if esErr != nil {
			zapLog.Warn("Elasticsearch unavailable, reporting index disabled", zap.Error(esErr))
		} else {
			esStore := audit.NewElasticsearchStore(esClient.Client, cfg.Audit.Elasticsearch.Index)
			indexCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			esErr = esStore.EnsureIndex(indexCtx)
			cancel()
			if esErr != nil {
				zapLog.Warn("Elasticsearch index setup failed, reporting index disabled", zap.Error(esErr))
			} else {
				secondaries = append(secondaries, esStore)
				readiness = append(readiness, esClient)
				zapLog.Info("Elasticsearch audit index enabled", zap.String("index", cfg.Audit.Elasticsearch.Index))
			}
		}
	}

	if cfg.Notifications.SNS.Enabled {
		snsClient, snsErr := aws.NewSNSClient(context.Background(), cfg.Notifications.SNS.Region)
		if snsErr != nil {
			zapLog.Warn("SNS unavailable, decision notifications disabled", zap.Error(snsErr))
		} else {
			secondaries = append(secondaries, audit.NewSNSSink(snsClient, cfg.Notifications.SNS.TopicARN, audit.EventFinalResponse))
			zapLog.Info("SNS decision notifications enabled", zap.String("topic", cfg.Notifications.SNS.TopicARN))
		}
	}

	recorder := audit.NewRecorder(audit.NewFanout(pgStore, log, secondaries...))

	// --- Pipeline ---
	orchestrator := orch.New(orch.LoadConfig(cfg), orch.Dependencies{
		Evaluator:   ed.NewEvaluator(ed.DefaultPolicy(), estimator, log),
		Advisor:     ci.NewAdvisor(generator, log),
		Explainer:   ee.NewExplainer(generator, log),
		Recorder:    recorder,
		Diagnostics: diagnostics,
		Tracer:      tracerProvider.Tracer("loan-advisor/orchestrator"),
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe worker ---
	var (
		zeebe     *camunda.Client
		jobWorker worker.JobWorker
	)
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda))
		if err != nil {
			zapLog.Fatal("Failed to connect to Zeebe", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))
		readiness = append(readiness, zeebe)

		handler := orch.NewHandler(orch.LoadConfig(cfg), orchestrator, obs, log)
		jobWorker = camunda.StartWorker(zeebe.GetClient(), orch.TaskType, config.GetWorkerConfig(cfg, orch.TaskType), handler, log)
	} else {
		zapLog.Info("Camunda disabled, no job workers started")
	}

	// --- Health, metrics & reporting ---
	router := httpx.NewRouter(readiness...)
	router.Mount("/audit", audit.NewReportHandler(pgStore, log))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if jobWorker != nil {
			jobWorker.Close()
			jobWorker.AwaitClose()
		}
		if zeebe != nil {
			if err := zeebe.Close(); err != nil {
				zapLog.Error("Error closing Zeebe client", zap.Error(err))
			}
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLog.Error("Error flushing traces", zap.Error(err))
		}
		if err := obs.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error stopping metrics", zap.Error(err))
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("Loan advisor stopped with error", zap.Error(err))
		return
	}
	zapLog.Info("Loan advisor stopped gracefully")
}
