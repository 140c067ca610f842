package events

type BetPlaced struct {
	BetID       string `json:"bet_id"`
	Bettor      string `json:"bettor"`
	Country     string `json:"country"`
	Day         int64  `json:"day"`
	Artist      string `json:"artist"`
	AmountCents int64  `json:"amount_cents"`
	Odds        int64  `json:"odds"` // x100, ex: 120 = 1.20x
	TsUnixMs    int64  `json:"ts_unix_ms"`
}

// Evento emitido quando uma aposta é liquidada (settle), com o crédito apurado.
type BetSettled struct {
	BetID        string `json:"bet_id"`
	Bettor       string `json:"bettor"`
	Country      string `json:"country"`
	Day          int64  `json:"day"`
	Won          bool   `json:"won"`
	PayoutCents  int64  `json:"payout_cents"` // já limitado pela reserva e pelo caixa
	TsUnixMs     int64  `json:"ts_unix_ms"`
}

type PayoutClaimed struct {
	Bettor      string `json:"bettor"`
	AmountCents int64  `json:"amount_cents"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
