package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/odds"
	"github.com/chartsbet/chartsbet-core/pkg/contracts/events"
)

// Pauser consulta o interruptor global de pausa (AdminControls).
type Pauser interface{ Paused() bool }

// Publisher emite os fatos de pool. Pode ser nil em testes.
type Publisher interface {
	PublishPoolOpened(ctx context.Context, e events.PoolOpened) error
	PublishTop10Updated(ctx context.Context, e events.Top10Updated) error
}

// Store é a persistência write-through dos pools. Pode ser nil em testes.
type Store interface {
	UpsertPool(ctx context.Context, s domain.PoolSnapshot) error
}

// OddsSink recebe a tabela de odds calculada no fulfillment (cache Redis
// para consumidores externos). Pode ser nil em testes.
type OddsSink interface {
	SetTop10(ctx context.Context, country string, day int64, table map[string]int64) error
}

// entry embrulha um pool com seu mutex: toda mutação de um pool passa por
// este lock, o que serializa as operações por chave país × dia.
type entry struct {
	mu   sync.Mutex
	pool *domain.Pool
}

// Registry guarda os pools por chave país × dia e controla o ciclo
// Uninitialized -> Open -> Closed. Pools nunca são removidos.
type Registry struct {
	Log             *zap.Logger
	Countries       []string
	DefaultDuration time.Duration

	Pauser   Pauser
	Pub      Publisher
	Store    Store
	OddsSink OddsSink

	// Clock é injetável para os testes controlarem o tempo.
	Clock func() time.Time

	mu    sync.RWMutex
	pools map[domain.PoolKey]*entry
}

func New(log *zap.Logger, countries []string, defaultDuration time.Duration) *Registry {
	return &Registry{
		Log:             log,
		Countries:       countries,
		DefaultDuration: defaultDuration,
		Clock:           time.Now,
		pools:           make(map[domain.PoolKey]*entry),
	}
}

// OpenResult é o desfecho por país do openAllDailyPools: falha em um país
// não aborta os demais.
type OpenResult struct {
	Country     string `json:"country"`
	Day         int64  `json:"day"`
	Created     bool   `json:"created"`
	AlreadyOpen bool   `json:"already_open,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OpenAllDailyPools cria um pool por país configurado para o dia corrente.
// duration<=0 usa a duração padrão. Rejeita com o motor pausado.
func (r *Registry) OpenAllDailyPools(ctx context.Context, duration time.Duration) ([]OpenResult, error) {
	if r.Pauser != nil && r.Pauser.Paused() {
		return nil, domain.ErrPaused
	}
	if duration <= 0 {
		duration = r.DefaultDuration
	}

	now := r.Clock()
	day := domain.DayIndex(now)
	results := make([]OpenResult, 0, len(r.Countries))

	for _, c := range r.Countries {
		country, err := domain.ParseCountry(c, r.Countries)
		if err != nil {
			results = append(results, OpenResult{Country: c, Day: day, Error: err.Error()})
			continue
		}
		res := r.openOne(ctx, country, day, now, duration)
		results = append(results, res)
	}
	return results, nil
}

func (r *Registry) openOne(ctx context.Context, country domain.Country, day int64, now time.Time, duration time.Duration) OpenResult {
	key := domain.PoolKey{Country: country, Day: day}

	r.mu.Lock()
	if _, ok := r.pools[key]; ok {
		r.mu.Unlock()
		return OpenResult{Country: string(country), Day: day, AlreadyOpen: true}
	}
	pool := &domain.Pool{
		Country:              country,
		Day:                  day,
		OpeningTime:          now,
		ScheduledClosingTime: now.Add(duration),
		Odds:                 make(map[domain.ArtistKey]int64),
		TotalBetsByArtist:    make(map[domain.ArtistKey]int64),
		Bets:                 make(map[string]*domain.Bet),
	}
	r.pools[key] = &entry{pool: pool}
	r.mu.Unlock()

	res := OpenResult{Country: string(country), Day: day, Created: true}
	if r.Store != nil {
		if err := r.Store.UpsertPool(ctx, pool.Snapshot()); err != nil {
			r.Log.Warn("pool persist failed", zap.String("country", string(country)), zap.Error(err))
			res.Error = err.Error()
		}
	}
	if r.Pub != nil {
		_ = r.Pub.PublishPoolOpened(ctx, events.PoolOpened{
			Country:     string(country),
			Day:         day,
			OpeningTime: now.Unix(),
			ScheduledT:  pool.ScheduledClosingTime.Unix(),
		})
	}
	return res
}

// Adopt insere pools reidratados do banco (recuperação no boot).
func (r *Registry) Adopt(pools []*domain.Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pools {
		r.pools[p.Key()] = &entry{pool: p}
	}
}

// Mutate roda fn com o lock do pool; é o único caminho de escrita.
func (r *Registry) Mutate(key domain.PoolKey, fn func(p *domain.Pool) error) error {
	r.mu.RLock()
	e, ok := r.pools[key]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrPoolNotOpen
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.pool)
}

// View roda fn com o lock do pool para leituras consistentes.
func (r *Registry) View(key domain.PoolKey, fn func(p *domain.Pool)) error {
	return r.Mutate(key, func(p *domain.Pool) error {
		fn(p)
		return nil
	})
}

// UpdateTop10 grava a lista de 10 artistas e recalcula as odds do pool de
// forma atômica: a tabela é montada fora do lock e trocada de uma vez.
// Reenvios antes do fechamento são aceitos e valem só para apostas futuras.
func (r *Registry) UpdateTop10(ctx context.Context, country domain.Country, day int64, artists []string) error {
	table, err := odds.BuildTable(artists)
	if err != nil {
		return err
	}

	key := domain.PoolKey{Country: country, Day: day}
	var snap domain.PoolSnapshot
	err = r.Mutate(key, func(p *domain.Pool) error {
		if p.Closed {
			return domain.ErrPoolAlreadyClosed
		}
		p.TopArtists = append([]string(nil), artists...)
		p.Odds = table
		snap = p.Snapshot()
		return nil
	})
	if err != nil {
		return err
	}

	if r.Store != nil {
		if serr := r.Store.UpsertPool(ctx, snap); serr != nil {
			r.Log.Warn("pool persist failed", zap.String("country", string(country)), zap.Error(serr))
		}
	}
	if r.OddsSink != nil {
		if cerr := r.OddsSink.SetTop10(ctx, string(country), day, snap.Odds); cerr != nil {
			r.Log.Warn("odds cache set failed", zap.Error(cerr))
		}
	}
	if r.Pub != nil {
		_ = r.Pub.PublishTop10Updated(ctx, events.Top10Updated{Country: string(country), Day: day, Artists: artists})
	}
	return nil
}

// GetPool devolve o snapshot do pool país × dia.
func (r *Registry) GetPool(country domain.Country, day int64) (domain.PoolSnapshot, error) {
	var snap domain.PoolSnapshot
	err := r.View(domain.PoolKey{Country: country, Day: day}, func(p *domain.Pool) {
		snap = p.Snapshot()
	})
	return snap, err
}

// GetOdds devolve as odds travadas de um artista no pool do dia; azarões
// (fora do top-10) recebem a cotação fixa de 3.50x.
func (r *Registry) GetOdds(country domain.Country, day int64, artist string) (int64, error) {
	key := domain.NormalizeArtist(artist)
	var out int64
	err := r.View(domain.PoolKey{Country: country, Day: day}, func(p *domain.Pool) {
		out = p.OddsFor(key)
	})
	return out, err
}

// Today é o índice de dia corrente segundo o relógio do registry.
func (r *Registry) Today() int64 { return domain.DayIndex(r.Clock()) }

// Now expõe o relógio para os componentes que compartilham o registry.
func (r *Registry) Now() time.Time { return r.Clock() }
