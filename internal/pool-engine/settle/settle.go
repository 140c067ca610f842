package settle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/registry"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/treasury"
	"github.com/chartsbet/chartsbet-core/pkg/contracts/events"
)

// Publisher emite os fatos de fechamento e liquidação. Pode ser nil em testes.
type Publisher interface {
	PublishPoolClosed(ctx context.Context, e events.PoolClosed) error
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
	PublishPayoutClaimed(ctx context.Context, e events.PayoutClaimed) error
}

// Store persiste o desfecho de apostas e pools. Pode ser nil em testes.
type Store interface {
	UpsertPool(ctx context.Context, s domain.PoolSnapshot) error
	MarkSettled(ctx context.Context, betID string, payoutCents int64) error
	MarkClaimed(ctx context.Context, bettor string) error
}

// PayoutSink recebe a transferência final do claim (carteira, gateway de
// pagamento). Pode ser nil; o caixa continua sendo a fonte de verdade.
type PayoutSink interface {
	Transfer(ctx context.Context, bettor string, amountCents int64, ref string) error
}

// Engine fecha pools, liquida apostas e paga o acumulado de cada apostador.
// A regra de reserva limita cada aposta vencedora a stake*(1+RESERVE/100) e
// o caixa limita o total prometido; quem liquida primeiro leva primeiro.
type Engine struct {
	Log      *zap.Logger
	Reg      *registry.Registry
	Treasury *treasury.Treasury

	ReservePercent int64 // 50 => teto de 150% do stake

	Pub   Publisher
	Store Store
	Sink  PayoutSink

	mu      sync.Mutex
	pending map[string]int64 // apostador -> crédito liquidado e não sacado
}

func New(log *zap.Logger, reg *registry.Registry, tr *treasury.Treasury, reservePercent int64) *Engine {
	return &Engine{
		Log:            log,
		Reg:            reg,
		Treasury:       tr,
		ReservePercent: reservePercent,
		pending:        make(map[string]int64),
	}
}

// ClosePoolAndAnnounceWinner fecha o pool do dia e registra o vencedor.
// Sem force, exige que o horário programado já tenha passado.
func (e *Engine) ClosePoolAndAnnounceWinner(ctx context.Context, country domain.Country, day int64, winner string, force bool) error {
	now := e.Reg.Now()
	winKey := domain.NormalizeArtist(winner)

	var snap domain.PoolSnapshot
	err := e.Reg.Mutate(domain.PoolKey{Country: country, Day: day}, func(p *domain.Pool) error {
		if p.Closed {
			return domain.ErrPoolAlreadyClosed
		}
		if !force && now.Before(p.ScheduledClosingTime) {
			return domain.ErrPoolNotReadyToClose
		}
		p.Closed = true
		p.ActualClosingTime = now
		p.WinningArtist = winKey
		snap = p.Snapshot()
		return nil
	})
	if err != nil {
		return err
	}

	if e.Store != nil {
		if serr := e.Store.UpsertPool(ctx, snap); serr != nil {
			e.Log.Warn("pool persist failed", zap.String("country", string(country)), zap.Error(serr))
		}
	}
	if e.Pub != nil {
		_ = e.Pub.PublishPoolClosed(ctx, events.PoolClosed{
			Country:       string(country),
			Day:           day,
			WinningArtist: string(winKey),
			ClosedAt:      now.Unix(),
			TsUnixMs:      time.Now().UnixMilli(),
		})
	}
	e.Log.Info("pool closed",
		zap.String("country", string(country)),
		zap.Int64("day", day),
		zap.String("winner", string(winKey)),
	)
	return nil
}

// SettleBet apura a aposta do apostador no pool fechado do país. Aposta
// perdedora liquida com zero; vencedora credita stake*odds/100, limitado
// pela reserva por aposta e pelo caixa ainda não comprometido.
func (e *Engine) SettleBet(ctx context.Context, bettor string, country domain.Country, day int64) (events.BetSettled, error) {
	var (
		out events.BetSettled
		bet domain.Bet
		won bool
	)
	err := e.Reg.Mutate(domain.PoolKey{Country: country, Day: day}, func(p *domain.Pool) error {
		if !p.Closed {
			return domain.ErrPoolNotReadyToClose
		}
		b, ok := p.Bets[bettor]
		if !ok {
			return domain.ErrBetNotFound
		}
		if b.Settled {
			return domain.ErrBetAlreadySettled
		}

		payout := int64(0)
		won = b.Artist == p.WinningArtist
		if won {
			raw := b.AmountCents * b.Odds / 100
			capped := b.AmountCents + b.AmountCents*e.ReservePercent/100
			if raw > capped {
				raw = capped
			}
			// O caixa concede só o que ainda não está comprometido:
			// liquidações tardias podem receber crédito parcial ou zero.
			payout = e.Treasury.Reserve(raw)
		}

		b.Settled = true
		b.PayoutCents = payout
		bet = *b
		return nil
	})
	if err != nil {
		return out, err
	}

	if bet.PayoutCents > 0 {
		e.mu.Lock()
		e.pending[bettor] += bet.PayoutCents
		e.mu.Unlock()
	}

	if e.Store != nil {
		if serr := e.Store.MarkSettled(ctx, bet.ID, bet.PayoutCents); serr != nil {
			e.Log.Warn("settlement persist failed", zap.String("bet_id", bet.ID), zap.Error(serr))
		}
	}

	out = events.BetSettled{
		BetID:       bet.ID,
		Bettor:      bettor,
		Country:     string(country),
		Day:         day,
		Won:         won,
		PayoutCents: bet.PayoutCents,
		TsUnixMs:    time.Now().UnixMilli(),
	}
	if e.Pub != nil {
		_ = e.Pub.PublishBetSettled(ctx, out)
	}
	return out, nil
}

// Pending devolve o crédito acumulado e ainda não sacado do apostador.
func (e *Engine) Pending(bettor string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending[bettor]
}

// ClaimPayout paga todo o crédito acumulado do apostador. O saldo pendente
// é zerado antes da transferência (checks-effects-interactions); a
// transferência é a última ação.
func (e *Engine) ClaimPayout(ctx context.Context, bettor string) (int64, error) {
	e.mu.Lock()
	amount := e.pending[bettor]
	if amount <= 0 {
		e.mu.Unlock()
		return 0, domain.ErrNoPayoutToClaim
	}
	delete(e.pending, bettor)
	e.mu.Unlock()

	e.Treasury.Pay(ctx, amount, "claim:"+bettor)

	if e.Store != nil {
		if serr := e.Store.MarkClaimed(ctx, bettor); serr != nil {
			e.Log.Warn("claim persist failed", zap.String("bettor", bettor), zap.Error(serr))
		}
	}
	if e.Pub != nil {
		_ = e.Pub.PublishPayoutClaimed(ctx, events.PayoutClaimed{
			Bettor:      bettor,
			AmountCents: amount,
			TsUnixMs:    time.Now().UnixMilli(),
		})
	}

	// Transferência externa por último, com o estado já consolidado.
	if e.Sink != nil {
		if terr := e.Sink.Transfer(ctx, bettor, amount, "claim:"+bettor); terr != nil {
			e.Log.Error("payout transfer failed", zap.String("bettor", bettor), zap.Error(terr))
		}
	}
	return amount, nil
}

// RestorePending reconstrói o mapa de créditos após um restart e volta a
// comprometer o caixa com eles, para que o claim debite uma reserva real.
// Com o caixa aquém do persistido, o crédito fica limitado ao que ainda
// pode ser honrado.
func (e *Engine) RestorePending(pending map[string]int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for bettor, amount := range pending {
		if amount <= 0 {
			continue
		}
		if granted := e.Treasury.Reserve(amount); granted > 0 {
			e.pending[bettor] = granted
		}
	}
}
