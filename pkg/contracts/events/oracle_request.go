package events

const (
	OracleKindLeaderboard = "leaderboard"
	OracleKindDailyWinner = "daily_winner"
)

// Pedido de dados ao oráculo externo. O oracle-worker consome este evento,
// busca o feed correspondente e chama o endpoint de fulfillment com o mesmo id.
type OracleRequested struct {
	RequestID string `json:"request_id"`
	Kind      string `json:"kind"` // "leaderboard" | "daily_winner"
	Country   string `json:"country"`
	Day       int64  `json:"day"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

// Evento publicado no tópico "withdrawals" a cada etapa do saque do owner.
type Withdrawal struct {
	WithdrawalID string `json:"withdrawal_id"`
	Stage        string `json:"stage"` // "REQUESTED" | "EXECUTED" | "EMERGENCY"
	AmountCents  int64  `json:"amount_cents"`
	ExecutableAt int64  `json:"executable_at,omitempty"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
