package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/registry"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/treasury"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func tenArtists() []string {
	out := make([]string, 10)
	for i := range out {
		out[i] = fmt.Sprintf("Artist %d", i)
	}
	return out
}

func newFixture(t *testing.T) (*Ledger, *registry.Registry, *treasury.Treasury) {
	t.Helper()
	reg := registry.New(zap.NewNop(), []string{"WW"}, 24*time.Hour)
	reg.Clock = func() time.Time { return fixedNow }
	if _, err := reg.OpenAllDailyPools(context.Background(), 0); err != nil {
		t.Fatalf("open pools: %v", err)
	}
	if err := reg.UpdateTop10(context.Background(), domain.CountryWW, reg.Today(), tenArtists()); err != nil {
		t.Fatalf("update top10: %v", err)
	}
	tr := treasury.New(nil)
	return New(zap.NewNop(), reg, tr, 100_000), reg, tr
}

type staticPauser bool

func (p staticPauser) Paused() bool { return bool(p) }

func TestPlaceBetLocksOdds(t *testing.T) {
	l, reg, tr := newFixture(t)

	bet, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Artist 0", 1_000)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if bet.Odds != 120 {
		t.Errorf("odds = %d, want 120", bet.Odds)
	}
	if bet.Artist != "artist 0" {
		t.Errorf("artist key = %q, want %q", bet.Artist, "artist 0")
	}
	if got := tr.Balance(); got != 1_000 {
		t.Errorf("treasury balance = %d, want 1000", got)
	}

	// reenvio do top-10 não mexe nas odds já travadas
	reversed := tenArtists()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	if err := reg.UpdateTop10(context.Background(), domain.CountryWW, reg.Today(), reversed); err != nil {
		t.Fatalf("resend top10: %v", err)
	}
	got, err := l.GetBet(domain.CountryWW, 0, "alice")
	if err != nil {
		t.Fatalf("GetBet: %v", err)
	}
	if got.Odds != 120 {
		t.Errorf("odds after resend = %d, want 120", got.Odds)
	}
}

func TestPlaceBetOutsiderOdds(t *testing.T) {
	l, _, _ := newFixture(t)
	bet, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Unknown Artist", 1_000)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if bet.Odds != domain.OutsiderOdds {
		t.Errorf("odds = %d, want %d", bet.Odds, domain.OutsiderOdds)
	}
}

func TestPlaceBetValidation(t *testing.T) {
	l, _, _ := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		amount int64
		want   error
	}{
		{"zero amount", 0, domain.ErrBetAmountZero},
		{"negative amount", -50, domain.ErrBetAmountZero},
		{"above max", 100_001, domain.ErrBetTooHigh},
	}
	for _, tc := range cases {
		if _, err := l.PlaceBet(ctx, "alice", domain.CountryWW, "Artist 0", tc.amount); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestPlaceBetDuplicateRejected(t *testing.T) {
	l, _, _ := newFixture(t)
	ctx := context.Background()

	if _, err := l.PlaceBet(ctx, "alice", domain.CountryWW, "Artist 0", 1_000); err != nil {
		t.Fatalf("first bet: %v", err)
	}
	if _, err := l.PlaceBet(ctx, "alice", domain.CountryWW, "Artist 1", 2_000); !errors.Is(err, domain.ErrBetAlreadyPlaced) {
		t.Fatalf("second bet: err = %v, want ErrBetAlreadyPlaced", err)
	}
	// outro apostador segue livre
	if _, err := l.PlaceBet(ctx, "bob", domain.CountryWW, "Artist 1", 2_000); err != nil {
		t.Fatalf("bob bet: %v", err)
	}
}

func TestPlaceBetOnMissingPool(t *testing.T) {
	reg := registry.New(zap.NewNop(), []string{"WW"}, 24*time.Hour)
	reg.Clock = func() time.Time { return fixedNow }
	l := New(zap.NewNop(), reg, treasury.New(nil), 100_000)

	if _, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Artist 0", 1_000); !errors.Is(err, domain.ErrPoolNotOpen) {
		t.Fatalf("err = %v, want ErrPoolNotOpen", err)
	}
}

func TestPlaceBetOnClosedPool(t *testing.T) {
	l, reg, _ := newFixture(t)
	key := domain.PoolKey{Country: domain.CountryWW, Day: reg.Today()}
	_ = reg.Mutate(key, func(p *domain.Pool) error {
		p.Closed = true
		return nil
	})
	if _, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Artist 0", 1_000); !errors.Is(err, domain.ErrBettingClosed) {
		t.Fatalf("err = %v, want ErrBettingClosed", err)
	}
}

func TestPlaceBetAfterScheduledClose(t *testing.T) {
	l, reg, _ := newFixture(t)
	reg.Clock = func() time.Time { return fixedNow.Add(25 * time.Hour) }

	// adota um pool do dia corrente com a janela já vencida
	day := reg.Today()
	reg.Adopt([]*domain.Pool{{
		Country:              domain.CountryWW,
		Day:                  day,
		OpeningTime:          fixedNow.Add(-48 * time.Hour),
		ScheduledClosingTime: fixedNow.Add(-24 * time.Hour),
		Odds:                 map[domain.ArtistKey]int64{},
		TotalBetsByArtist:    map[domain.ArtistKey]int64{},
		Bets:                 map[string]*domain.Bet{},
	}})

	if _, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Artist 0", 1_000); !errors.Is(err, domain.ErrPoolNotOpen) {
		t.Fatalf("err = %v, want ErrPoolNotOpen", err)
	}
}

func TestPlaceBetWhenPaused(t *testing.T) {
	l, _, _ := newFixture(t)
	l.Pauser = staticPauser(true)
	if _, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Artist 0", 1_000); !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("err = %v, want ErrPaused", err)
	}
}

func TestPlaceBetRequireTop10(t *testing.T) {
	l, _, _ := newFixture(t)
	l.RequireTop10 = true

	if _, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Unknown Artist", 1_000); !errors.Is(err, domain.ErrArtistNotInLeaderboard) {
		t.Fatalf("err = %v, want ErrArtistNotInLeaderboard", err)
	}
	if _, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Artist 3", 1_000); err != nil {
		t.Fatalf("top-10 artist rejected: %v", err)
	}
}

func TestHasBetPlaced(t *testing.T) {
	l, _, _ := newFixture(t)
	if l.HasBetPlaced(domain.CountryWW, 0, "alice") {
		t.Error("HasBetPlaced before betting = true")
	}
	if _, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Artist 0", 1_000); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if !l.HasBetPlaced(domain.CountryWW, 0, "alice") {
		t.Error("HasBetPlaced after betting = false")
	}
}

func TestReadsAcceptExplicitDayAfterMidnight(t *testing.T) {
	l, reg, _ := newFixture(t)
	if _, err := l.PlaceBet(context.Background(), "alice", domain.CountryWW, "Artist 0", 1_000); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	day := reg.Today()

	// virada do dia: a aposta de ontem segue legível com o dia explícito,
	// como na rota de liquidação
	reg.Clock = func() time.Time { return fixedNow.Add(24 * time.Hour) }

	if l.HasBetPlaced(domain.CountryWW, 0, "alice") {
		t.Error("bet leaked into today's pool")
	}
	if !l.HasBetPlaced(domain.CountryWW, day, "alice") {
		t.Error("yesterday's bet unreadable with explicit day")
	}
	got, err := l.GetBet(domain.CountryWW, day, "alice")
	if err != nil {
		t.Fatalf("GetBet with explicit day: %v", err)
	}
	if got.Day != day || got.Odds != 120 {
		t.Errorf("bet = %+v, want day %d odds 120", got, day)
	}
	if _, err := l.GetBet(domain.CountryWW, 0, "alice"); !errors.Is(err, domain.ErrPoolNotOpen) {
		t.Fatalf("GetBet today: err = %v, want ErrPoolNotOpen", err)
	}
}

func TestPoolTotalsTrackStakes(t *testing.T) {
	l, reg, _ := newFixture(t)
	ctx := context.Background()
	_, _ = l.PlaceBet(ctx, "alice", domain.CountryWW, "Artist 0", 1_000)
	_, _ = l.PlaceBet(ctx, "bob", domain.CountryWW, "Artist 0", 2_000)
	_, _ = l.PlaceBet(ctx, "carol", domain.CountryWW, "Artist 1", 500)

	snap, err := reg.GetPool(domain.CountryWW, reg.Today())
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if snap.TotalBetCents != 3_500 {
		t.Errorf("TotalBetCents = %d, want 3500", snap.TotalBetCents)
	}
	if snap.TotalBetsByArtist["artist 0"] != 3_000 {
		t.Errorf("artist 0 total = %d, want 3000", snap.TotalBetsByArtist["artist 0"])
	}
}
