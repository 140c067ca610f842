package events

// Evento publicado no tópico "pool_opened", um por país aberto no dia.
type PoolOpened struct {
	Country       string `json:"country"`
	Day           int64  `json:"day"`
	OpeningTime   int64  `json:"opening_time"`
	ScheduledT    int64  `json:"scheduled_closing_time"`
	TsUnixMs      int64  `json:"ts_unix_ms"`
}

// Evento publicado quando o oráculo entrega o top-10 de um país.
type Top10Updated struct {
	Country  string   `json:"country"`
	Day      int64    `json:"day"`
	Artists  []string `json:"artists"`
	TsUnixMs int64    `json:"ts_unix_ms"`
}

// Evento publicado no fechamento do pool, com o artista vencedor.
type PoolClosed struct {
	Country       string `json:"country"`
	Day           int64  `json:"day"`
	WinningArtist string `json:"winning_artist"`
	ClosedAt      int64  `json:"closed_at"`
	TsUnixMs      int64  `json:"ts_unix_ms"`
}
