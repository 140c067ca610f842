package oracleworker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Admin é a fatia do EngineClient usada pelo agendador diário.
type Admin interface {
	OpenAllDailyPools(ctx context.Context, duration time.Duration) error
	RequestLeaderboard(ctx context.Context, country string) error
	RequestWinner(ctx context.Context, country string) error
}

// Expressões cron do dia de apostas, sempre em UTC.
const (
	cronSpecOpen  = "0 0 * * *"   // meia-noite: abre pools e pede leaderboards
	cronSpecClose = "59 23 * * *" // marca de fechamento: pede os vencedores
)

// Scheduler reproduz o cron do dia de apostas: à meia-noite UTC abre os pools
// e pede o leaderboard de cada país; às 23:59 UTC pede o vencedor do dia.
// Os pools abrem com duração até a marca de 23:59 do próprio dia, de modo que
// o tick de fechamento sempre cai no horário programado ou depois dele.
type Scheduler struct {
	Log       *zap.Logger
	Engine    Admin
	Countries []string

	Clock func() time.Time
}

func (s *Scheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// Run arma os dois ticks diários e bloqueia até o contexto ser cancelado.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cronSpecOpen, func() { s.openDay(ctx) }); err != nil {
		return err
	}
	if _, err := c.AddFunc(cronSpecClose, func() { s.closeDay(ctx) }); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// openDay abre os pools do dia e dispara um pedido de leaderboard por país.
// A duração enviada ancora o fechamento programado na marca de 23:59, mesmo
// que o tick dispare com algum atraso depois da meia-noite.
func (s *Scheduler) openDay(ctx context.Context) {
	now := s.now()
	s.Log.Info("daily open tick")
	if err := s.Engine.OpenAllDailyPools(ctx, closeMarkFor(now).Sub(now)); err != nil {
		s.Log.Error("open pools failed", zap.Error(err))
	}
	for _, c := range s.Countries {
		if err := s.Engine.RequestLeaderboard(ctx, c); err != nil {
			s.Log.Error("leaderboard request failed", zap.String("country", c), zap.Error(err))
		}
	}
}

// closeDay dispara um pedido de vencedor por país.
func (s *Scheduler) closeDay(ctx context.Context) {
	s.Log.Info("daily close tick")
	for _, c := range s.Countries {
		if err := s.Engine.RequestWinner(ctx, c); err != nil {
			s.Log.Error("winner request failed", zap.String("country", c), zap.Error(err))
		}
	}
}

// closeMarkFor devolve a próxima marca de 23:59 UTC a partir de now.
func closeMarkFor(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	mark := time.Date(y, m, d, 23, 59, 0, 0, time.UTC)
	if !mark.After(now) {
		mark = mark.AddDate(0, 0, 1)
	}
	return mark
}
