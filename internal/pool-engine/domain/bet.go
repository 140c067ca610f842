package domain

import "time"

// Bet é uma aposta individual contra um pool. Odds são travadas no momento
// da aposta e nunca recalculadas, mesmo que o top-10 seja reenviado.
type Bet struct {
	ID          string
	Bettor      string
	Country     Country
	Day         int64
	Artist      ArtistKey
	ArtistName  string // forma original, para exibição
	AmountCents int64
	Odds        int64 // x100; 130 = 1.30x
	PlacedAt    time.Time

	Settled     bool
	// PayoutCents só tem significado depois de Settled=true; já vem limitado
	// pela reserva e pelo caixa disponível no momento da liquidação.
	PayoutCents int64
}

// OutsiderOdds é a cotação fixa (x100) de artistas fora do top-10.
const OutsiderOdds = 350

// OracleRequestKind distingue os dois pedidos feitos ao oráculo.
type OracleRequestKind string

const (
	RequestLeaderboard OracleRequestKind = "leaderboard"
	RequestDailyWinner OracleRequestKind = "daily_winner"
)

// OracleRequest correlaciona um pedido de dados com seu fulfillment
// assíncrono. Cada id é cumprido no máximo uma vez.
type OracleRequest struct {
	ID        string
	Kind      OracleRequestKind
	Country   Country
	Day       int64
	CreatedAt time.Time
	Fulfilled bool
}
