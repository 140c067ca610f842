package http

// Payloads da API pública do motor.

type placeBetRequest struct {
	Bettor      string `json:"bettor"`
	Country     string `json:"country"`
	Artist      string `json:"artist"`
	AmountCents int64  `json:"amount_cents"`
}

type placeBetResponse struct {
	BetID       string `json:"bet_id"`
	Odds        int64  `json:"odds"` // x100, travadas na aposta
	AmountCents int64  `json:"amount_cents"`
}

type betResponse struct {
	BetID       string `json:"bet_id"`
	Bettor      string `json:"bettor"`
	Country     string `json:"country"`
	Day         int64  `json:"day"`
	Artist      string `json:"artist"`
	ArtistName  string `json:"artist_name"`
	AmountCents int64  `json:"amount_cents"`
	Odds        int64  `json:"odds"`
	Settled     bool   `json:"settled"`
	PayoutCents int64  `json:"payout_cents"`
}

type oddsResponse struct {
	Country string `json:"country"`
	Artist  string `json:"artist"`
	Odds    int64  `json:"odds"`
}

type openPoolsRequest struct {
	DurationSeconds int64 `json:"duration_seconds"` // 0 usa a duração padrão
}

type top10Request struct {
	Artists []string `json:"artists"`
}

type closeRequest struct {
	Winner string `json:"winner"`
	Day    int64  `json:"day,omitempty"` // 0 = dia corrente
	Force  bool   `json:"force,omitempty"`
}

type settleRequest struct {
	Bettor string `json:"bettor"`
	Day    int64  `json:"day,omitempty"`
}

type claimRequest struct {
	Bettor string `json:"bettor"`
}

type withdrawalRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type fulfillLeaderboardRequest struct {
	RequestID string   `json:"request_id"`
	Country   string   `json:"country"`
	Artists   []string `json:"artists"`
}

type fulfillWinnerRequest struct {
	RequestID string `json:"request_id"`
	Country   string `json:"country"`
	Artist    string `json:"artist"`
}
