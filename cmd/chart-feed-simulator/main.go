package main

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	chartfeed "github.com/chartsbet/chartsbet-core/internal/chart-feed"
	"github.com/chartsbet/chartsbet-core/internal/shared/config"
	"github.com/chartsbet/chartsbet-core/internal/shared/logger"
	"github.com/chartsbet/chartsbet-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	feed := chartfeed.New(cfg.Countries)
	hub := chartfeed.NewHub(log)
	srv := &chartfeed.Server{Log: log, Feed: feed, Hub: hub}

	// Checa a virada do dia a cada minuto e avisa os clientes WS
	stop := make(chan struct{})
	go srv.RunTicker(time.Minute, stop)

	// métricas e healthcheck (feed não tem dependências externas)
	metrics.StartMetricsServer(cfg.MetricsPort, nil)
	log.Info("chart feed (metrics) running", zap.String("addr", ":"+cfg.MetricsPort))

	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("chart feed (public) running",
		zap.String("addr", publicAddr),
		zap.String("paths", "/leaderboard,/daily-winner,/countries,/ws"),
		zap.Strings("countries", cfg.Countries),
	)
	if err := http.ListenAndServe(publicAddr, srv.Router()); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
