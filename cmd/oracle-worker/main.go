package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	oracleworker "github.com/chartsbet/chartsbet-core/internal/oracle-worker"
	"github.com/chartsbet/chartsbet-core/internal/shared/config"
	"github.com/chartsbet/chartsbet-core/internal/shared/kafka"
	"github.com/chartsbet/chartsbet-core/internal/shared/logger"
	"github.com/chartsbet/chartsbet-core/internal/shared/metrics"
)

var (
	fulfilledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_fulfillments_total",
		Help: "Pedidos de oráculo atendidos com sucesso.",
	}, []string{"kind"})
	failedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_fulfillment_errors_total",
		Help: "Pedidos de oráculo que esgotaram os retries.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(fulfilledTotal, failedTotal)
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Kafka consumer: pedidos de dados emitidos pelo motor
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicOracleRequests, "oracle-worker")
	defer reader.Close()

	var dlqWriter *kafka.Writer
	if cfg.TopicOracleDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOracleDLQ)
		defer dlqWriter.Close()
	}

	engine := oracleworker.NewEngineClient(cfg.EngineURL, cfg.OwnerAPIKey, cfg.OracleAPIKey)
	feed := oracleworker.NewFeedClient(cfg.FeedURL)

	// Servidor de métricas Prometheus e healthcheck
	metrics.StartMetricsServer(cfg.MetricsPort, nil)
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	ctx := context.Background()

	// Agendador diário: abre pools + pede leaderboards à meia-noite UTC,
	// pede vencedores às 23:59 UTC
	sched := &oracleworker.Scheduler{
		Log:       log,
		Engine:    engine,
		Countries: cfg.Countries,
		Clock:     func() time.Time { return time.Now().UTC() },
	}
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("scheduler stopped", zap.Error(err))
		}
	}()

	log.Info("oracle-worker started",
		zap.String("consume", cfg.TopicOracleRequests),
		zap.String("engine", cfg.EngineURL),
		zap.String("feed", cfg.FeedURL),
	)

	proc := &oracleworker.Processor{
		Log:     log,
		Reader:  reader,
		Engine:  engine,
		Feed:    feed,
		DLQ:     dlqWriter,
		Retries: 3,
		OnFulfilled: func(kind string) {
			fulfilledTotal.WithLabelValues(kind).Inc()
		},
		OnError: func(kind string) {
			failedTotal.WithLabelValues(kind).Inc()
		},
	}
	if err := proc.Run(ctx); err != nil {
		log.Fatal("worker stopped", zap.Error(err))
	}
}
