package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/registry"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/settle"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/treasury"
	"github.com/chartsbet/chartsbet-core/pkg/contracts/events"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func tenArtists() []string {
	out := make([]string, 10)
	for i := range out {
		out[i] = fmt.Sprintf("Artist %d", i)
	}
	return out
}

func newBridge(t *testing.T) (*Bridge, *registry.Registry) {
	t.Helper()
	reg := registry.New(zap.NewNop(), []string{"WW"}, 24*time.Hour)
	reg.Clock = func() time.Time { return fixedNow }
	if _, err := reg.OpenAllDailyPools(context.Background(), 0); err != nil {
		t.Fatalf("open pools: %v", err)
	}
	eng := settle.New(zap.NewNop(), reg, treasury.New(nil), 50)
	return New(zap.NewNop(), reg, eng, "oracle"), reg
}

type requestCapture struct {
	last events.OracleRequested
}

func (c *requestCapture) PublishOracleRequested(_ context.Context, e events.OracleRequested) error {
	c.last = e
	return nil
}

func TestRequestEmitsCorrelationID(t *testing.T) {
	b, reg := newBridge(t)
	capture := &requestCapture{}
	b.Pub = capture

	id, err := b.RequestLeaderboardData(context.Background(), domain.CountryWW)
	if err != nil {
		t.Fatalf("RequestLeaderboardData: %v", err)
	}
	if id == "" {
		t.Fatal("empty request id")
	}
	if capture.last.RequestID != id {
		t.Errorf("published id = %q, want %q", capture.last.RequestID, id)
	}
	if capture.last.Kind != events.OracleKindLeaderboard {
		t.Errorf("published kind = %q, want leaderboard", capture.last.Kind)
	}
	if capture.last.Day != reg.Today() {
		t.Errorf("published day = %d, want %d", capture.last.Day, reg.Today())
	}
	if b.PendingRequests() != 1 {
		t.Errorf("pending = %d, want 1", b.PendingRequests())
	}
}

func TestFulfillLeaderboardAppliesTop10(t *testing.T) {
	b, reg := newBridge(t)
	ctx := context.Background()

	id, _ := b.RequestLeaderboardData(ctx, domain.CountryWW)
	if err := b.FulfillLeaderboardData(ctx, "oracle", id, domain.CountryWW, tenArtists()); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	got, err := reg.GetOdds(domain.CountryWW, reg.Today(), "Artist 0")
	if err != nil {
		t.Fatalf("GetOdds: %v", err)
	}
	if got != 120 {
		t.Errorf("odds = %d, want 120", got)
	}
	if b.PendingRequests() != 0 {
		t.Errorf("pending = %d, want 0", b.PendingRequests())
	}
}

func TestFulfillRejectsWrongPrincipal(t *testing.T) {
	b, _ := newBridge(t)
	ctx := context.Background()
	id, _ := b.RequestLeaderboardData(ctx, domain.CountryWW)

	err := b.FulfillLeaderboardData(ctx, "owner", id, domain.CountryWW, tenArtists())
	if !errors.Is(err, domain.ErrOnlyOracle) {
		t.Fatalf("err = %v, want ErrOnlyOracle", err)
	}
	// pedido continua pendente para o principal certo
	if err := b.FulfillLeaderboardData(ctx, "oracle", id, domain.CountryWW, tenArtists()); err != nil {
		t.Fatalf("fulfill by oracle: %v", err)
	}
}

func TestFulfillRejectsUnknownAndReplayedIDs(t *testing.T) {
	b, _ := newBridge(t)
	ctx := context.Background()

	err := b.FulfillLeaderboardData(ctx, "oracle", "no-such-id", domain.CountryWW, tenArtists())
	if !errors.Is(err, domain.ErrUnknownRequest) {
		t.Fatalf("unknown id: err = %v, want ErrUnknownRequest", err)
	}

	id, _ := b.RequestLeaderboardData(ctx, domain.CountryWW)
	if err := b.FulfillLeaderboardData(ctx, "oracle", id, domain.CountryWW, tenArtists()); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	err = b.FulfillLeaderboardData(ctx, "oracle", id, domain.CountryWW, tenArtists())
	if !errors.Is(err, domain.ErrRequestAlreadyFulfilled) {
		t.Fatalf("replay: err = %v, want ErrRequestAlreadyFulfilled", err)
	}
}

func TestFulfillRejectsKindAndCountryMismatch(t *testing.T) {
	b, _ := newBridge(t)
	ctx := context.Background()

	lbID, _ := b.RequestLeaderboardData(ctx, domain.CountryWW)

	// id de leaderboard entregue como winner
	err := b.FulfillDailyWinner(ctx, "oracle", lbID, domain.CountryWW, "Artist 0")
	if !errors.Is(err, domain.ErrRequestMismatch) {
		t.Fatalf("kind mismatch: err = %v, want ErrRequestMismatch", err)
	}
	// país diferente do pedido
	err = b.FulfillLeaderboardData(ctx, "oracle", lbID, domain.CountryBR, tenArtists())
	if !errors.Is(err, domain.ErrRequestMismatch) {
		t.Fatalf("country mismatch: err = %v, want ErrRequestMismatch", err)
	}
	// o mismatch não queima o pedido
	if err := b.FulfillLeaderboardData(ctx, "oracle", lbID, domain.CountryWW, tenArtists()); err != nil {
		t.Fatalf("correct fulfill after mismatch: %v", err)
	}
}

func TestFailedFulfillmentCanBeRetried(t *testing.T) {
	b, _ := newBridge(t)
	ctx := context.Background()

	id, _ := b.RequestLeaderboardData(ctx, domain.CountryWW)

	// payload inválido: a aplicação falha e o pedido volta a pendente
	err := b.FulfillLeaderboardData(ctx, "oracle", id, domain.CountryWW, []string{"too", "short"})
	if !errors.Is(err, domain.ErrInvalidArtistCount) {
		t.Fatalf("bad payload: err = %v, want ErrInvalidArtistCount", err)
	}
	if b.PendingRequests() != 1 {
		t.Fatalf("pending = %d, want 1 after failed fulfillment", b.PendingRequests())
	}

	if err := b.FulfillLeaderboardData(ctx, "oracle", id, domain.CountryWW, tenArtists()); err != nil {
		t.Fatalf("retry with same id: %v", err)
	}
}

func TestWinnerFulfillmentSucceedsAtDailyCloseMark(t *testing.T) {
	// pool aberto à meia-noite com a duração padrão de produção: o
	// fechamento programado cai na marca de 23:59, junto com o pedido de
	// vencedor do agendador
	midnight := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	reg := registry.New(zap.NewNop(), []string{"WW"}, 23*time.Hour+59*time.Minute)
	reg.Clock = func() time.Time { return midnight }
	if _, err := reg.OpenAllDailyPools(context.Background(), 0); err != nil {
		t.Fatalf("open pools: %v", err)
	}
	eng := settle.New(zap.NewNop(), reg, treasury.New(nil), 50)
	b := New(zap.NewNop(), reg, eng, "oracle")
	ctx := context.Background()

	id, _ := b.RequestDailyWinner(ctx, domain.CountryWW)
	day := reg.Today()

	reg.Clock = func() time.Time { return midnight.Add(23*time.Hour + 59*time.Minute) }
	if err := b.FulfillDailyWinner(ctx, "oracle", id, domain.CountryWW, "GIMS"); err != nil {
		t.Fatalf("winner at close mark: %v", err)
	}

	snap, err := reg.GetPool(domain.CountryWW, day)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if !snap.Closed || snap.WinningArtist != "gims" {
		t.Errorf("pool = %+v, want closed with winner gims", snap)
	}
}

func TestFulfillDailyWinnerClosesPool(t *testing.T) {
	b, reg := newBridge(t)
	ctx := context.Background()

	id, _ := b.RequestDailyWinner(ctx, domain.CountryWW)

	// antes do horário programado o fechamento sem force falha e o pedido
	// continua re-tentável
	err := b.FulfillDailyWinner(ctx, "oracle", id, domain.CountryWW, "Artist 0")
	if !errors.Is(err, domain.ErrPoolNotReadyToClose) {
		t.Fatalf("early winner: err = %v, want ErrPoolNotReadyToClose", err)
	}

	day := reg.Today()
	reg.Clock = func() time.Time { return fixedNow.Add(25 * time.Hour) }
	if err := b.FulfillDailyWinner(ctx, "oracle", id, domain.CountryWW, "Artist 0"); err != nil {
		t.Fatalf("winner fulfill: %v", err)
	}

	snap, err := reg.GetPool(domain.CountryWW, day)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if !snap.Closed || snap.WinningArtist != "artist 0" {
		t.Errorf("pool = %+v, want closed with winner artist 0", snap)
	}
}
