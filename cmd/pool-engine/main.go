package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/admin"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/cache"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	ehttp "github.com/chartsbet/chartsbet-core/internal/pool-engine/http"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/ledger"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/oracle"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/producer"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/registry"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/repo"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/settle"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/treasury"
	sharedcache "github.com/chartsbet/chartsbet-core/internal/shared/cache"
	"github.com/chartsbet/chartsbet-core/internal/shared/config"
	"github.com/chartsbet/chartsbet-core/internal/shared/db"
	"github.com/chartsbet/chartsbet-core/internal/shared/logger"
	"github.com/chartsbet/chartsbet-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	ctx := context.Background()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	repository := repo.NewPostgres(pg)
	if err := repository.EnsureSchema(ctx); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Redis
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()
	oddsCache := cache.NewOddsCache(rdb, 26*time.Hour)

	// Kafka
	publ := producer.NewKafkaPublisher(cfg)
	defer publ.Close()

	// Componentes do motor
	tr := treasury.New(repository)
	adm := admin.New(log, tr, cfg.WithdrawCooldown)
	adm.Pub = publ
	adm.Store = repository

	reg := registry.New(log, cfg.Countries, cfg.PoolDuration)
	reg.Pauser = adm
	reg.Pub = publ
	reg.Store = repository
	reg.OddsSink = oddsCache

	led := ledger.New(log, reg, tr, cfg.MaxBetCents)
	led.RequireTop10 = cfg.RequireTop10
	led.Pauser = adm
	led.Pub = publ
	led.Store = repository

	set := settle.New(log, reg, tr, cfg.ReservePercent)
	set.Pub = publ
	set.Store = repository

	bridge := oracle.New(log, reg, set, "oracle")
	bridge.Pub = publ
	bridge.Store = repository

	// Recuperação: reidrata os pools do dia, o saldo do caixa e os créditos
	// não sacados. A ordem importa: o saldo entra antes dos créditos, que
	// voltam a reservar o caixa restaurado.
	today := domain.DayIndex(time.Now())
	if pools, err := repository.LoadDayPools(ctx, today); err != nil {
		log.Warn("pool recovery failed", zap.Error(err))
	} else if len(pools) > 0 {
		reg.Adopt(pools)
		log.Info("pools recovered", zap.Int("count", len(pools)))
	}
	if balance, err := repository.TreasuryBalance(ctx); err != nil {
		log.Warn("treasury recovery failed", zap.Error(err))
	} else if balance != 0 {
		tr.Restore(balance)
		log.Info("treasury restored", zap.Int64("balance_cents", balance))
	}
	if pending, err := repository.PendingPayouts(ctx); err != nil {
		log.Warn("pending payout recovery failed", zap.Error(err))
	} else if len(pending) > 0 {
		set.RestorePending(pending)
		log.Info("pending payouts recovered", zap.Int("bettors", len(pending)))
	}

	// HTTP público
	api := &ehttp.Server{
		Log:          log,
		Reg:          reg,
		Ledger:       led,
		Settle:       set,
		Bridge:       bridge,
		Admin:        adm,
		Countries:    cfg.Countries,
		OwnerAPIKey:  cfg.OwnerAPIKey,
		OracleAPIKey: cfg.OracleAPIKey,
	}
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	log.Info("pool-engine listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
