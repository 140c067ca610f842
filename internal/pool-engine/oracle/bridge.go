package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/registry"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/settle"
	"github.com/chartsbet/chartsbet-core/pkg/contracts/events"
)

// Publisher emite os pedidos ao oráculo (tópico oracle_requests).
type Publisher interface {
	PublishOracleRequested(ctx context.Context, e events.OracleRequested) error
}

// Store persiste a tabela de pedidos pendentes. Pode ser nil em testes.
type Store interface {
	SaveOracleRequest(ctx context.Context, r domain.OracleRequest) error
	MarkRequestFulfilled(ctx context.Context, id string) error
}

// Bridge correlaciona pedidos de dados com seus fulfillments por id.
// Emitir um pedido não bloqueia; a mutação de estado acontece estritamente
// no fulfillment, e cada id só é aceito uma vez (proteção contra replay).
type Bridge struct {
	Log    *zap.Logger
	Reg    *registry.Registry
	Settle *settle.Engine

	// OraclePrincipal identifica quem pode cumprir pedidos.
	OraclePrincipal string

	Pub   Publisher
	Store Store

	mu       sync.Mutex
	requests map[string]*domain.OracleRequest
}

func New(log *zap.Logger, reg *registry.Registry, st *settle.Engine, oraclePrincipal string) *Bridge {
	return &Bridge{
		Log:             log,
		Reg:             reg,
		Settle:          st,
		OraclePrincipal: oraclePrincipal,
		requests:        make(map[string]*domain.OracleRequest),
	}
}

// RequestLeaderboardData registra um pedido de top-10 e emite o fato.
func (b *Bridge) RequestLeaderboardData(ctx context.Context, country domain.Country) (string, error) {
	return b.request(ctx, domain.RequestLeaderboard, country)
}

// RequestDailyWinner registra um pedido de vencedor do dia e emite o fato.
func (b *Bridge) RequestDailyWinner(ctx context.Context, country domain.Country) (string, error) {
	return b.request(ctx, domain.RequestDailyWinner, country)
}

func (b *Bridge) request(ctx context.Context, kind domain.OracleRequestKind, country domain.Country) (string, error) {
	now := b.Reg.Now()
	req := &domain.OracleRequest{
		ID:        uuid.NewString(),
		Kind:      kind,
		Country:   country,
		Day:       domain.DayIndex(now),
		CreatedAt: now,
	}

	b.mu.Lock()
	b.requests[req.ID] = req
	b.mu.Unlock()

	if b.Store != nil {
		if err := b.Store.SaveOracleRequest(ctx, *req); err != nil {
			b.Log.Warn("oracle request persist failed", zap.String("request_id", req.ID), zap.Error(err))
		}
	}
	if b.Pub != nil {
		_ = b.Pub.PublishOracleRequested(ctx, events.OracleRequested{
			RequestID: req.ID,
			Kind:      string(kind),
			Country:   string(country),
			Day:       req.Day,
			TsUnixMs:  time.Now().UnixMilli(),
		})
	}
	b.Log.Info("oracle request issued",
		zap.String("request_id", req.ID),
		zap.String("kind", string(kind)),
		zap.String("country", string(country)),
	)
	return req.ID, nil
}

// take valida principal, id, kind e país, e marca o pedido como cumprido.
// Falhas de correlação são fatais e logadas; nunca se aplica duas vezes.
func (b *Bridge) take(principal, id string, kind domain.OracleRequestKind, country domain.Country) (*domain.OracleRequest, error) {
	if principal != b.OraclePrincipal {
		return nil, domain.ErrOnlyOracle
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.requests[id]
	if !ok {
		return nil, domain.ErrUnknownRequest
	}
	if req.Fulfilled {
		return nil, domain.ErrRequestAlreadyFulfilled
	}
	if req.Kind != kind || req.Country != country {
		return nil, domain.ErrRequestMismatch
	}
	req.Fulfilled = true
	return req, nil
}

// FulfillLeaderboardData entrega o top-10 de um pedido pendente e repassa
// ao registry. Se a aplicação falhar, o pedido volta a pendente para o
// oráculo tentar de novo com o mesmo id.
func (b *Bridge) FulfillLeaderboardData(ctx context.Context, principal, id string, country domain.Country, artists []string) error {
	req, err := b.take(principal, id, domain.RequestLeaderboard, country)
	if err != nil {
		b.Log.Error("leaderboard fulfillment rejected", zap.String("request_id", id), zap.Error(err))
		return err
	}

	if err := b.Reg.UpdateTop10(ctx, country, req.Day, artists); err != nil {
		b.unfulfill(id)
		return err
	}
	b.markFulfilled(ctx, id)
	return nil
}

// FulfillDailyWinner entrega o vencedor de um pedido pendente e fecha o
// pool via SettlementEngine.
func (b *Bridge) FulfillDailyWinner(ctx context.Context, principal, id string, country domain.Country, winner string) error {
	req, err := b.take(principal, id, domain.RequestDailyWinner, country)
	if err != nil {
		b.Log.Error("winner fulfillment rejected", zap.String("request_id", id), zap.Error(err))
		return err
	}

	if err := b.Settle.ClosePoolAndAnnounceWinner(ctx, country, req.Day, winner, false); err != nil {
		b.unfulfill(id)
		return err
	}
	b.markFulfilled(ctx, id)
	return nil
}

func (b *Bridge) unfulfill(id string) {
	b.mu.Lock()
	if req, ok := b.requests[id]; ok {
		req.Fulfilled = false
	}
	b.mu.Unlock()
}

func (b *Bridge) markFulfilled(ctx context.Context, id string) {
	if b.Store == nil {
		return
	}
	if err := b.Store.MarkRequestFulfilled(ctx, id); err != nil {
		b.Log.Warn("oracle request update failed", zap.String("request_id", id), zap.Error(err))
	}
}

// PendingRequests conta pedidos ainda não cumpridos (métrica/operacional).
func (b *Bridge) PendingRequests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if !r.Fulfilled {
			n++
		}
	}
	return n
}
