package oracleworker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/pkg/contracts/events"
)

type stubEngine struct {
	leaderboards []string // request ids recebidos
	winners      []string
	lastArtists  []string
	lastWinner   string
	fail         int // falha as próximas n chamadas
}

func (e *stubEngine) FulfillLeaderboard(_ context.Context, requestID, country string, artists []string) error {
	if e.fail > 0 {
		e.fail--
		return errors.New("engine unavailable")
	}
	e.leaderboards = append(e.leaderboards, requestID)
	e.lastArtists = artists
	return nil
}

func (e *stubEngine) FulfillWinner(_ context.Context, requestID, country, artist string) error {
	if e.fail > 0 {
		e.fail--
		return errors.New("engine unavailable")
	}
	e.winners = append(e.winners, requestID)
	e.lastWinner = artist
	return nil
}

type stubFeed struct {
	artists []string
	winner  string
	err     error
}

func (f *stubFeed) Leaderboard(_ context.Context, _ string) ([]string, error) {
	return f.artists, f.err
}

func (f *stubFeed) DailyWinner(_ context.Context, _ string) (string, error) {
	return f.winner, f.err
}

func newProcessor(engine *stubEngine, feed *stubFeed) *Processor {
	return &Processor{
		Log:     zap.NewNop(),
		Engine:  engine,
		Feed:    feed,
		Retries: 3,
	}
}

func TestFulfillLeaderboardRequest(t *testing.T) {
	engine := &stubEngine{}
	feed := &stubFeed{artists: []string{"a", "b", "c"}}
	p := newProcessor(engine, feed)

	req := events.OracleRequested{RequestID: "r1", Kind: events.OracleKindLeaderboard, Country: "WW"}
	if err := p.fulfillOne(context.Background(), req); err != nil {
		t.Fatalf("fulfillOne: %v", err)
	}
	if len(engine.leaderboards) != 1 || engine.leaderboards[0] != "r1" {
		t.Errorf("leaderboard fulfillments = %v, want [r1]", engine.leaderboards)
	}
	if len(engine.lastArtists) != 3 {
		t.Errorf("forwarded %d artists, want 3", len(engine.lastArtists))
	}
}

func TestFulfillWinnerRequest(t *testing.T) {
	engine := &stubEngine{}
	feed := &stubFeed{winner: "gims"}
	p := newProcessor(engine, feed)

	req := events.OracleRequested{RequestID: "r2", Kind: events.OracleKindDailyWinner, Country: "FR"}
	if err := p.fulfillOne(context.Background(), req); err != nil {
		t.Fatalf("fulfillOne: %v", err)
	}
	if len(engine.winners) != 1 || engine.lastWinner != "gims" {
		t.Errorf("winners = %v lastWinner = %q, want [r2] gims", engine.winners, engine.lastWinner)
	}
}

func TestUnknownKindIsDropped(t *testing.T) {
	engine := &stubEngine{}
	p := newProcessor(engine, &stubFeed{})

	req := events.OracleRequested{RequestID: "r3", Kind: "mystery", Country: "WW"}
	if err := p.fulfillOne(context.Background(), req); err != nil {
		t.Fatalf("unknown kind must not error: %v", err)
	}
	if len(engine.leaderboards)+len(engine.winners) != 0 {
		t.Error("unknown kind must not reach the engine")
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	engine := &stubEngine{fail: 2}
	feed := &stubFeed{winner: "gims"}
	p := newProcessor(engine, feed)

	req := events.OracleRequested{RequestID: "r4", Kind: events.OracleKindDailyWinner, Country: "FR"}
	if err := p.fulfillWithRetry(context.Background(), req); err != nil {
		t.Fatalf("fulfillWithRetry: %v", err)
	}
	if len(engine.winners) != 1 {
		t.Errorf("winners = %v, want one fulfillment", engine.winners)
	}
}

func TestRetryGivesUpEventually(t *testing.T) {
	engine := &stubEngine{fail: 99}
	p := newProcessor(engine, &stubFeed{winner: "gims"})

	req := events.OracleRequested{RequestID: "r5", Kind: events.OracleKindDailyWinner, Country: "FR"}
	if err := p.fulfillWithRetry(context.Background(), req); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if len(engine.winners) != 0 {
		t.Errorf("winners = %v, want none", engine.winners)
	}
}

func TestFeedErrorPropagates(t *testing.T) {
	engine := &stubEngine{}
	p := newProcessor(engine, &stubFeed{err: errors.New("feed down")})

	req := events.OracleRequested{RequestID: "r6", Kind: events.OracleKindLeaderboard, Country: "WW"}
	if err := p.fulfillOne(context.Background(), req); err == nil {
		t.Fatal("expected feed error")
	}
	if len(engine.leaderboards) != 0 {
		t.Error("engine must not be called when the feed fails")
	}
}

type stubAdmin struct {
	openDurations []time.Duration
	leaderboards  []string
	winners       []string
}

func (a *stubAdmin) OpenAllDailyPools(_ context.Context, duration time.Duration) error {
	a.openDurations = append(a.openDurations, duration)
	return nil
}

func (a *stubAdmin) RequestLeaderboard(_ context.Context, country string) error {
	a.leaderboards = append(a.leaderboards, country)
	return nil
}

func (a *stubAdmin) RequestWinner(_ context.Context, country string) error {
	a.winners = append(a.winners, country)
	return nil
}

func TestOpenDayAnchorsCloseAtDailyMark(t *testing.T) {
	admin := &stubAdmin{}
	// tick da meia-noite disparado com um pequeno atraso
	tickAt := time.Date(2026, 3, 1, 0, 0, 0, 250_000_000, time.UTC)
	s := &Scheduler{
		Log:       zap.NewNop(),
		Engine:    admin,
		Countries: []string{"WW", "BR"},
		Clock:     func() time.Time { return tickAt },
	}

	s.openDay(context.Background())

	if len(admin.openDurations) != 1 {
		t.Fatalf("open calls = %d, want 1", len(admin.openDurations))
	}
	// o fechamento programado cai exatamente nas 23:59 do mesmo dia, então o
	// tick de vencedor nunca chega antes do horário programado do pool
	want := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC).Sub(tickAt)
	if got := admin.openDurations[0]; got != want {
		t.Errorf("open duration = %v, want %v", got, want)
	}
	if len(admin.leaderboards) != 2 {
		t.Errorf("leaderboard requests = %v, want one per country", admin.leaderboards)
	}
}

func TestCloseDayRequestsWinnerPerCountry(t *testing.T) {
	admin := &stubAdmin{}
	s := &Scheduler{Log: zap.NewNop(), Engine: admin, Countries: []string{"WW", "FR"}}

	s.closeDay(context.Background())

	if len(admin.winners) != 2 || admin.winners[0] != "WW" || admin.winners[1] != "FR" {
		t.Errorf("winner requests = %v, want [WW FR]", admin.winners)
	}
}

func TestCloseMarkFor(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC),
		},
		{
			time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC),
		},
		{
			time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		if got := closeMarkFor(tc.now); !got.Equal(tc.want) {
			t.Errorf("closeMarkFor(%v) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestCronSpecsCoverBothDayBoundaries(t *testing.T) {
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	open, err := cron.ParseStandard(cronSpecOpen)
	if err != nil {
		t.Fatalf("parse open spec: %v", err)
	}
	if got, want := open.Next(from), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("open next = %v, want %v", got, want)
	}

	closeSpec, err := cron.ParseStandard(cronSpecClose)
	if err != nil {
		t.Fatalf("parse close spec: %v", err)
	}
	if got, want := closeSpec.Next(from), time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("close next = %v, want %v", got, want)
	}
}
