package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/treasury"
)

// Postgres implementa a persistência write-through do motor: pools, apostas,
// pedidos ao oráculo, ledger do caixa e saques. O estado em memória é a
// fonte de verdade; o banco serve recuperação e auditoria.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// EnsureSchema cria as tabelas na subida do serviço.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS pools (
		country          TEXT   NOT NULL,
		day              BIGINT NOT NULL,
		opening_time     BIGINT NOT NULL,
		scheduled_close  BIGINT NOT NULL,
		actual_close     BIGINT,
		top_artists      JSONB,
		odds             JSONB,
		closed           BOOLEAN NOT NULL DEFAULT FALSE,
		winning_artist   TEXT,
		total_bet_cents  BIGINT NOT NULL DEFAULT 0,
		total_by_artist  JSONB,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (country, day)
	);
	CREATE TABLE IF NOT EXISTS bets (
		id            UUID PRIMARY KEY,
		bettor        TEXT   NOT NULL,
		country       TEXT   NOT NULL,
		day           BIGINT NOT NULL,
		artist        TEXT   NOT NULL,
		artist_name   TEXT   NOT NULL,
		amount_cents  BIGINT NOT NULL,
		odds          BIGINT NOT NULL,
		placed_at     TIMESTAMPTZ NOT NULL,
		settled       BOOLEAN NOT NULL DEFAULT FALSE,
		payout_cents  BIGINT NOT NULL DEFAULT 0,
		claimed       BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (bettor, country, day)
	);
	CREATE TABLE IF NOT EXISTS oracle_requests (
		id         UUID PRIMARY KEY,
		kind       TEXT   NOT NULL,
		country    TEXT   NOT NULL,
		day        BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		fulfilled  BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE TABLE IF NOT EXISTS treasury_ledger (
		id           BIGSERIAL PRIMARY KEY,
		op_type      TEXT   NOT NULL,
		amount_cents BIGINT NOT NULL,
		ref          TEXT,
		created_at   TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS withdrawals (
		id            UUID PRIMARY KEY,
		amount_cents  BIGINT NOT NULL,
		executable_at TIMESTAMPTZ NOT NULL,
		stage         TEXT NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`
	_, err := p.db.ExecContext(ctx, ddl)
	return err
}

// UpsertPool grava o snapshot inteiro do pool (registry.Store/settle.Store).
func (p *Postgres) UpsertPool(ctx context.Context, s domain.PoolSnapshot) error {
	topJSON, _ := json.Marshal(s.TopArtists)
	oddsJSON, _ := json.Marshal(s.Odds)
	totalsJSON, _ := json.Marshal(s.TotalBetsByArtist)

	var actual any
	if s.ActualClosingTime != 0 {
		actual = s.ActualClosingTime
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO pools (country, day, opening_time, scheduled_close, actual_close,
			top_artists, odds, closed, winning_artist, total_bet_cents, total_by_artist, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
		ON CONFLICT (country, day) DO UPDATE SET
			actual_close    = EXCLUDED.actual_close,
			top_artists     = EXCLUDED.top_artists,
			odds            = EXCLUDED.odds,
			closed          = EXCLUDED.closed,
			winning_artist  = EXCLUDED.winning_artist,
			total_bet_cents = EXCLUDED.total_bet_cents,
			total_by_artist = EXCLUDED.total_by_artist,
			updated_at      = NOW()`,
		s.Country, s.Day, s.OpeningTime, s.ScheduledClosingTime, actual,
		topJSON, oddsJSON, s.Closed, s.WinningArtist, s.TotalBetCents, totalsJSON,
	)
	return err
}

// SaveBet insere a aposta recém-criada (ledger.Store).
func (p *Postgres) SaveBet(ctx context.Context, b domain.Bet) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id, bettor, country, day, artist, artist_name, amount_cents, odds, placed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		b.ID, b.Bettor, b.Country, b.Day, b.Artist, b.ArtistName, b.AmountCents, b.Odds, b.PlacedAt,
	)
	return err
}

// MarkSettled grava o desfecho da liquidação de uma aposta (settle.Store).
func (p *Postgres) MarkSettled(ctx context.Context, betID string, payoutCents int64) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE bets SET settled=TRUE, payout_cents=$1 WHERE id=$2`, payoutCents, betID)
	return err
}

// MarkClaimed zera o pendente do apostador no banco (settle.Store).
func (p *Postgres) MarkClaimed(ctx context.Context, bettor string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE bets SET claimed=TRUE WHERE bettor=$1 AND settled=TRUE AND claimed=FALSE`, bettor)
	return err
}

// SaveOracleRequest insere um pedido pendente (oracle.Store).
func (p *Postgres) SaveOracleRequest(ctx context.Context, r domain.OracleRequest) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO oracle_requests (id, kind, country, day, created_at, fulfilled)
		VALUES ($1,$2,$3,$4,$5,FALSE)`,
		r.ID, r.Kind, r.Country, r.Day, r.CreatedAt,
	)
	return err
}

func (p *Postgres) MarkRequestFulfilled(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE oracle_requests SET fulfilled=TRUE WHERE id=$1`, id)
	return err
}

// SaveMovement registra uma linha do ledger do caixa (treasury.Store).
func (p *Postgres) SaveMovement(ctx context.Context, m treasury.Movement) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO treasury_ledger (op_type, amount_cents, ref, created_at)
		VALUES ($1,$2,$3,$4)`,
		m.Type, m.AmountCents, m.Ref, m.At,
	)
	return err
}

// TreasuryBalance soma o ledger do caixa (stakes creditam, payouts e saques
// debitam) para repor o saldo em memória no boot.
func (p *Postgres) TreasuryBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN op_type = $1 THEN amount_cents ELSE -amount_cents END), 0)
		FROM treasury_ledger`, treasury.MovementStake).Scan(&balance)
	return balance, err
}

// SaveWithdrawal insere/atualiza um pedido de saque (admin.Store).
func (p *Postgres) SaveWithdrawal(ctx context.Context, id string, amountCents int64, executableAt time.Time, stage string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO withdrawals (id, amount_cents, executable_at, stage, updated_at)
		VALUES ($1,$2,$3,$4,NOW())
		ON CONFLICT (id) DO UPDATE SET stage=EXCLUDED.stage, updated_at=NOW()`,
		id, amountCents, executableAt, stage,
	)
	return err
}

// LoadDayPools reidrata os pools (com apostas) de um dia para a recuperação
// no boot do serviço.
func (p *Postgres) LoadDayPools(ctx context.Context, day int64) ([]*domain.Pool, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT country, day, opening_time, scheduled_close, actual_close,
		       top_artists, odds, closed, winning_artist, total_bet_cents, total_by_artist
		FROM pools WHERE day=$1`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []*domain.Pool
	byKey := make(map[domain.PoolKey]*domain.Pool)
	for rows.Next() {
		var (
			pool                          domain.Pool
			country, winner               string
			opening, scheduled            int64
			actual                        sql.NullInt64
			topJSON, oddsJSON, totalsJSON []byte
		)
		if err := rows.Scan(&country, &pool.Day, &opening, &scheduled, &actual,
			&topJSON, &oddsJSON, &pool.Closed, &winner, &pool.TotalBetCents, &totalsJSON); err != nil {
			return nil, err
		}
		pool.Country = domain.Country(country)
		pool.OpeningTime = time.Unix(opening, 0).UTC()
		pool.ScheduledClosingTime = time.Unix(scheduled, 0).UTC()
		if actual.Valid {
			pool.ActualClosingTime = time.Unix(actual.Int64, 0).UTC()
		}
		pool.WinningArtist = domain.ArtistKey(winner)
		pool.Bets = make(map[string]*domain.Bet)
		pool.Odds = make(map[domain.ArtistKey]int64)
		pool.TotalBetsByArtist = make(map[domain.ArtistKey]int64)
		if len(topJSON) > 0 {
			_ = json.Unmarshal(topJSON, &pool.TopArtists)
		}
		if len(oddsJSON) > 0 {
			var odds map[string]int64
			_ = json.Unmarshal(oddsJSON, &odds)
			for k, v := range odds {
				pool.Odds[domain.ArtistKey(k)] = v
			}
		}
		if len(totalsJSON) > 0 {
			var totals map[string]int64
			_ = json.Unmarshal(totalsJSON, &totals)
			for k, v := range totals {
				pool.TotalBetsByArtist[domain.ArtistKey(k)] = v
			}
		}
		pools = append(pools, &pool)
		byKey[pool.Key()] = &pool
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	brows, err := p.db.QueryContext(ctx, `
		SELECT id, bettor, country, day, artist, artist_name, amount_cents, odds, placed_at, settled, payout_cents
		FROM bets WHERE day=$1`, day)
	if err != nil {
		return nil, err
	}
	defer brows.Close()
	for brows.Next() {
		var (
			b       domain.Bet
			country string
			artist  string
		)
		if err := brows.Scan(&b.ID, &b.Bettor, &country, &b.Day, &artist, &b.ArtistName,
			&b.AmountCents, &b.Odds, &b.PlacedAt, &b.Settled, &b.PayoutCents); err != nil {
			return nil, err
		}
		b.Country = domain.Country(country)
		b.Artist = domain.ArtistKey(artist)
		if pool, ok := byKey[domain.PoolKey{Country: b.Country, Day: b.Day}]; ok {
			bb := b
			pool.Bets[b.Bettor] = &bb
		}
	}
	return pools, brows.Err()
}

// PendingPayouts reconstrói o crédito liquidado e não sacado por apostador.
func (p *Postgres) PendingPayouts(ctx context.Context) (map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT bettor, SUM(payout_cents)
		FROM bets
		WHERE settled=TRUE AND claimed=FALSE AND payout_cents > 0
		GROUP BY bettor`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var bettor string
		var amount int64
		if err := rows.Scan(&bettor, &amount); err != nil {
			return nil, err
		}
		out[bettor] = amount
	}
	return out, rows.Err()
}
