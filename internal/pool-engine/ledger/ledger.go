package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/registry"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/treasury"
	"github.com/chartsbet/chartsbet-core/pkg/contracts/events"
)

// Publisher emite o fato bet_placed. Pode ser nil em testes.
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
}

// Store persiste apostas criadas. Pode ser nil em testes.
type Store interface {
	SaveBet(ctx context.Context, b domain.Bet) error
}

// Ledger registra apostas contra os pools: no máximo uma aposta não
// liquidada por (apostador, pool), stake positivo e limitado, odds travadas
// na hora pela tabela do pool.
type Ledger struct {
	Log      *zap.Logger
	Reg      *registry.Registry
	Treasury *treasury.Treasury

	MaxBetCents  int64
	RequireTop10 bool // variante que rejeita apostas fora do top-10

	Pauser registry.Pauser
	Pub    Publisher
	Store  Store
}

func New(log *zap.Logger, reg *registry.Registry, tr *treasury.Treasury, maxBetCents int64) *Ledger {
	return &Ledger{Log: log, Reg: reg, Treasury: tr, MaxBetCents: maxBetCents}
}

// PlaceBet valida e grava uma aposta no pool corrente do país. A mutação
// inteira roda sob o lock do pool; o stake entra no caixa no mesmo passo.
func (l *Ledger) PlaceBet(ctx context.Context, bettor string, country domain.Country, artistName string, amountCents int64) (domain.Bet, error) {
	if l.Pauser != nil && l.Pauser.Paused() {
		return domain.Bet{}, domain.ErrPaused
	}
	if amountCents <= 0 {
		return domain.Bet{}, domain.ErrBetAmountZero
	}
	if l.MaxBetCents > 0 && amountCents > l.MaxBetCents {
		return domain.Bet{}, domain.ErrBetTooHigh
	}

	now := l.Reg.Now()
	day := domain.DayIndex(now)
	key := domain.PoolKey{Country: country, Day: day}
	artist := domain.NormalizeArtist(artistName)

	var bet domain.Bet
	err := l.Reg.Mutate(key, func(p *domain.Pool) error {
		if p.Closed {
			return domain.ErrBettingClosed
		}
		if !p.AcceptingBets(now) {
			return domain.ErrPoolNotOpen
		}
		if existing, ok := p.Bets[bettor]; ok && !existing.Settled {
			return domain.ErrBetAlreadyPlaced
		}
		if l.RequireTop10 {
			if _, ok := p.Odds[artist]; !ok {
				return domain.ErrArtistNotInLeaderboard
			}
		}

		bet = domain.Bet{
			ID:          uuid.NewString(),
			Bettor:      bettor,
			Country:     country,
			Day:         day,
			Artist:      artist,
			ArtistName:  artistName,
			AmountCents: amountCents,
			Odds:        p.OddsFor(artist),
			PlacedAt:    now,
		}
		p.Bets[bettor] = &bet
		p.TotalBetCents += amountCents
		p.TotalBetsByArtist[artist] += amountCents
		return nil
	})
	if err != nil {
		return domain.Bet{}, err
	}

	// Stake entra no caixa e fica disponível para payouts futuros.
	l.Treasury.Deposit(ctx, amountCents, "bet:"+bet.ID)

	if l.Store != nil {
		if serr := l.Store.SaveBet(ctx, bet); serr != nil {
			l.Log.Warn("bet persist failed", zap.String("bet_id", bet.ID), zap.Error(serr))
		}
	}
	if l.Pub != nil {
		_ = l.Pub.PublishBetPlaced(ctx, events.BetPlaced{
			BetID:       bet.ID,
			Bettor:      bettor,
			Country:     string(country),
			Day:         day,
			Artist:      string(artist),
			AmountCents: amountCents,
			Odds:        bet.Odds,
			TsUnixMs:    time.Now().UnixMilli(),
		})
	}
	return bet, nil
}

// HasBetPlaced é a leitura usada pelo cliente antes do round-trip do POST.
// day<=0 usa o dia corrente; dias passados continuam legíveis até o claim.
func (l *Ledger) HasBetPlaced(country domain.Country, day int64, bettor string) bool {
	if day <= 0 {
		day = l.Reg.Today()
	}
	placed := false
	_ = l.Reg.View(domain.PoolKey{Country: country, Day: day}, func(p *domain.Pool) {
		b, ok := p.Bets[bettor]
		placed = ok && !b.Settled
	})
	return placed
}

// GetBet devolve a aposta do apostador no pool do país no dia pedido.
// day<=0 usa o dia corrente.
func (l *Ledger) GetBet(country domain.Country, day int64, bettor string) (domain.Bet, error) {
	if day <= 0 {
		day = l.Reg.Today()
	}
	var out domain.Bet
	err := l.Reg.Mutate(domain.PoolKey{Country: country, Day: day}, func(p *domain.Pool) error {
		b, ok := p.Bets[bettor]
		if !ok {
			return domain.ErrBetNotFound
		}
		out = *b
		return nil
	})
	return out, err
}
