package oracleworker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/pkg/contracts/events"
)

// Engine é a fatia do EngineClient usada pelo worker de fulfillment.
type Engine interface {
	FulfillLeaderboard(ctx context.Context, requestID, country string, artists []string) error
	FulfillWinner(ctx context.Context, requestID, country, artist string) error
}

// Feed é a fatia do FeedClient usada pelo worker.
type Feed interface {
	Leaderboard(ctx context.Context, country string) ([]string, error)
	DailyWinner(ctx context.Context, country string) (string, error)
}

// Processor consome pedidos do tópico oracle_requests, resolve cada um no
// feed de charts e responde ao motor com o mesmo request id. Pedido que
// falha após os retries vai para a DLQ e fica "preso" até intervenção.
type Processor struct {
	Log    *zap.Logger
	Reader *kafka.Reader
	Engine Engine
	Feed   Feed

	DLQ *kafka.Writer // opcional

	Retries int

	OnFulfilled func(kind string) // métricas
	OnError     func(kind string) // métricas
}

// Run inicia o loop principal de consumo e fulfillment.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}

		var req events.OracleRequested
		if err := json.Unmarshal(m.Value, &req); err != nil {
			p.Log.Error("invalid oracle request message", zap.Error(err))
			continue
		}

		if err := p.fulfillWithRetry(ctx, req); err != nil {
			p.Log.Error("oracle fulfillment failed",
				zap.String("request_id", req.RequestID),
				zap.String("kind", req.Kind),
				zap.Error(err),
			)
			if p.OnError != nil {
				p.OnError(req.Kind)
			}
			if p.DLQ != nil {
				_ = p.DLQ.WriteMessages(ctx, kafka.Message{Key: []byte(req.RequestID), Value: m.Value})
			}
			continue
		}
		if p.OnFulfilled != nil {
			p.OnFulfilled(req.Kind)
		}
	}
}

func (p *Processor) fulfillWithRetry(ctx context.Context, req events.OracleRequested) error {
	retries := p.Retries
	if retries <= 0 {
		retries = 3
	}
	var err error
	for i := 0; i < retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(300*i) * time.Millisecond)
		}
		if err = p.fulfillOne(ctx, req); err == nil {
			return nil
		}
	}
	return err
}

func (p *Processor) fulfillOne(ctx context.Context, req events.OracleRequested) error {
	switch req.Kind {
	case events.OracleKindLeaderboard:
		artists, err := p.Feed.Leaderboard(ctx, req.Country)
		if err != nil {
			return err
		}
		return p.Engine.FulfillLeaderboard(ctx, req.RequestID, req.Country, artists)
	case events.OracleKindDailyWinner:
		winner, err := p.Feed.DailyWinner(ctx, req.Country)
		if err != nil {
			return err
		}
		return p.Engine.FulfillWinner(ctx, req.RequestID, req.Country, winner)
	default:
		p.Log.Warn("unknown oracle request kind", zap.String("kind", req.Kind))
		return nil
	}
}
