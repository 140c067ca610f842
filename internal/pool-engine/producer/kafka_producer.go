package producer

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/chartsbet/chartsbet-core/internal/shared/config"
	"github.com/chartsbet/chartsbet-core/internal/shared/kafka"
	"github.com/chartsbet/chartsbet-core/pkg/contracts/events"
)

// KafkaPublisher implementa todos os publishers do motor, um writer por
// tópico. Satisfaz registry.Publisher, ledger.Publisher, settle.Publisher,
// oracle.Publisher e admin.Publisher.
type KafkaPublisher struct {
	poolOpened     *kafkago.Writer
	top10Updated   *kafkago.Writer
	poolClosed     *kafkago.Writer
	betPlaced      *kafkago.Writer
	betSettled     *kafkago.Writer
	payoutClaimed  *kafkago.Writer
	oracleRequests *kafkago.Writer
	withdrawals    *kafkago.Writer
}

func NewKafkaPublisher(cfg config.Config) *KafkaPublisher {
	return &KafkaPublisher{
		poolOpened:     kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPoolOpened),
		top10Updated:   kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTop10Updated),
		poolClosed:     kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPoolClosed),
		betPlaced:      kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced),
		betSettled:     kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled),
		payoutClaimed:  kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPayoutClaimed),
		oracleRequests: kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOracleRequests),
		withdrawals:    kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWithdrawals),
	}
}

// Close encerra todos os writers.
func (p *KafkaPublisher) Close() {
	for _, w := range []*kafkago.Writer{
		p.poolOpened, p.top10Updated, p.poolClosed, p.betPlaced,
		p.betSettled, p.payoutClaimed, p.oracleRequests, p.withdrawals,
	} {
		_ = w.Close()
	}
}

func write(ctx context.Context, w *kafkago.Writer, key string, v any) error {
	b, _ := json.Marshal(v)
	return kafka.WriteJSON(ctx, w, key, b)
}

func (p *KafkaPublisher) PublishPoolOpened(ctx context.Context, e events.PoolOpened) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return write(ctx, p.poolOpened, e.Country, e)
}

func (p *KafkaPublisher) PublishTop10Updated(ctx context.Context, e events.Top10Updated) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return write(ctx, p.top10Updated, e.Country, e)
}

func (p *KafkaPublisher) PublishPoolClosed(ctx context.Context, e events.PoolClosed) error {
	return write(ctx, p.poolClosed, e.Country, e)
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	return write(ctx, p.betPlaced, e.BetID, e)
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	return write(ctx, p.betSettled, e.BetID, e)
}

func (p *KafkaPublisher) PublishPayoutClaimed(ctx context.Context, e events.PayoutClaimed) error {
	return write(ctx, p.payoutClaimed, e.Bettor, e)
}

func (p *KafkaPublisher) PublishOracleRequested(ctx context.Context, e events.OracleRequested) error {
	return write(ctx, p.oracleRequests, e.RequestID, e)
}

func (p *KafkaPublisher) PublishWithdrawal(ctx context.Context, e events.Withdrawal) error {
	return write(ctx, p.withdrawals, e.WithdrawalID, e)
}
