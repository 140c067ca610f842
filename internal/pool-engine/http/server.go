package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/admin"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/ledger"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/oracle"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/registry"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/settle"
)

// Principais aceitos pela borda HTTP. Apostadores se identificam no corpo
// da requisição; owner e oracle por API key.
const (
	principalOwner  = "owner"
	principalOracle = "oracle"
)

var (
	betsPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_bets_placed_total", Help: "Apostas aceitas",
	})
	betsSettledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_bets_settled_total", Help: "Apostas liquidadas",
	})
	payoutsClaimedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_payouts_claimed_total", Help: "Claims pagos",
	})
	poolsOpenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_pools_opened_total", Help: "Pools abertos",
	})
)

func init() {
	prometheus.MustRegister(betsPlacedTotal, betsSettledTotal, payoutsClaimedTotal, poolsOpenedTotal)
}

// Server expõe as operações do motor sobre HTTP.
type Server struct {
	Log    *zap.Logger
	Reg    *registry.Registry
	Ledger *ledger.Ledger
	Settle *settle.Engine
	Bridge *oracle.Bridge
	Admin  *admin.Controls

	Countries    []string
	OwnerAPIKey  string
	OracleAPIKey string
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Leituras públicas (funcionam inclusive com o motor pausado)
	r.Get("/v1/pools/{country}", s.getPool)
	r.Get("/v1/pools/{country}/odds/{artist}", s.getOdds)
	r.Get("/v1/pools/{country}/placed", s.hasBetPlaced)
	r.Get("/v1/bets/{country}", s.getBet)
	r.Get("/v1/payouts/pending", s.getPending)

	// Apostadores
	r.Post("/v1/bets", s.placeBet)
	r.Post("/v1/bets/{country}/settle", s.settleBet)
	r.Post("/v1/payouts/claim", s.claimPayout)

	// Owner
	r.Post("/v1/admin/pools/open", s.ownerOnly(s.openAllDailyPools))
	r.Post("/v1/admin/pools/{country}/top10", s.ownerOnly(s.updateTop10))
	r.Post("/v1/admin/pools/{country}/close", s.ownerOnly(s.closePool))
	r.Post("/v1/admin/pause", s.ownerOnly(s.pause))
	r.Post("/v1/admin/unpause", s.ownerOnly(s.unpause))
	r.Post("/v1/admin/withdrawals", s.ownerOnly(s.requestWithdrawal))
	r.Post("/v1/admin/withdrawals/{id}/execute", s.ownerOnly(s.executeWithdrawal))
	r.Post("/v1/admin/withdrawals/emergency", s.ownerOnly(s.emergencyWithdraw))
	r.Post("/v1/admin/oracle/leaderboard/{country}", s.ownerOnly(s.requestLeaderboard))
	r.Post("/v1/admin/oracle/winner/{country}", s.ownerOnly(s.requestWinner))

	// Oráculo (fulfillments)
	r.Post("/v1/oracle/fulfill/leaderboard", s.fulfillLeaderboard)
	r.Post("/v1/oracle/fulfill/winner", s.fulfillWinner)

	return r
}

// principal resolve a API key do header para um principal conhecido.
func (s *Server) principal(r *http.Request) string {
	switch r.Header.Get("X-Api-Key") {
	case s.OwnerAPIKey:
		return principalOwner
	case s.OracleAPIKey:
		return principalOracle
	default:
		return ""
	}
}

func (s *Server) ownerOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.principal(r) != principalOwner {
			writeError(w, domain.ErrNotOwner)
			return
		}
		next(w, r)
	}
}

func (s *Server) country(r *http.Request) (domain.Country, error) {
	return domain.ParseCountry(chi.URLParam(r, "country"), s.Countries)
}

// dayParam lê o ?day= opcional; 0 significa "dia corrente".
func dayParam(r *http.Request) int64 {
	day, _ := strconv.ParseInt(r.URL.Query().Get("day"), 10, 64)
	return day
}

// --- leituras ---

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	country, err := s.country(r)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.Reg.GetPool(country, s.Reg.Today())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getOdds(w http.ResponseWriter, r *http.Request) {
	country, err := s.country(r)
	if err != nil {
		writeError(w, err)
		return
	}
	odds, err := s.Reg.GetOdds(country, s.Reg.Today(), chi.URLParam(r, "artist"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, oddsResponse{Country: string(country), Artist: chi.URLParam(r, "artist"), Odds: odds})
}

func (s *Server) hasBetPlaced(w http.ResponseWriter, r *http.Request) {
	country, err := s.country(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bettor := r.URL.Query().Get("bettor")
	if bettor == "" {
		http.Error(w, "bettor required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"placed": s.Ledger.HasBetPlaced(country, dayParam(r), bettor)})
}

// getBet lê a aposta do apostador; ?day= permite consultar pools de dias
// anteriores ainda em liquidação.
func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	country, err := s.country(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bettor := r.URL.Query().Get("bettor")
	if bettor == "" {
		http.Error(w, "bettor required", http.StatusBadRequest)
		return
	}
	bet, err := s.Ledger.GetBet(country, dayParam(r), bettor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, betResponse{
		BetID:       bet.ID,
		Bettor:      bet.Bettor,
		Country:     string(bet.Country),
		Day:         bet.Day,
		Artist:      string(bet.Artist),
		ArtistName:  bet.ArtistName,
		AmountCents: bet.AmountCents,
		Odds:        bet.Odds,
		Settled:     bet.Settled,
		PayoutCents: bet.PayoutCents,
	})
}

func (s *Server) getPending(w http.ResponseWriter, r *http.Request) {
	bettor := r.URL.Query().Get("bettor")
	if bettor == "" {
		http.Error(w, "bettor required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"pending_cents": s.Settle.Pending(bettor)})
}

// --- apostadores ---

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Bettor == "" || req.Artist == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	country, err := domain.ParseCountry(req.Country, s.Countries)
	if err != nil {
		writeError(w, err)
		return
	}
	bet, err := s.Ledger.PlaceBet(r.Context(), req.Bettor, country, req.Artist, req.AmountCents)
	if err != nil {
		writeError(w, err)
		return
	}
	betsPlacedTotal.Inc()
	writeJSON(w, http.StatusCreated, placeBetResponse{
		BetID:       bet.ID,
		Odds:        bet.Odds,
		AmountCents: bet.AmountCents,
	})
}

func (s *Server) settleBet(w http.ResponseWriter, r *http.Request) {
	country, err := s.country(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Bettor == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	day := req.Day
	if day == 0 {
		day = s.Reg.Today()
	}
	out, err := s.Settle.SettleBet(r.Context(), req.Bettor, country, day)
	if err != nil {
		writeError(w, err)
		return
	}
	betsSettledTotal.Inc()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) claimPayout(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Bettor == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	amount, err := s.Settle.ClaimPayout(r.Context(), req.Bettor)
	if err != nil {
		writeError(w, err)
		return
	}
	payoutsClaimedTotal.Inc()
	writeJSON(w, http.StatusOK, map[string]int64{"paid_cents": amount})
}

// --- owner ---

func (s *Server) openAllDailyPools(w http.ResponseWriter, r *http.Request) {
	var req openPoolsRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // corpo vazio usa a duração padrão
	results, err := s.Reg.OpenAllDailyPools(r.Context(), time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, res := range results {
		if res.Created {
			poolsOpenedTotal.Inc()
		}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) updateTop10(w http.ResponseWriter, r *http.Request) {
	country, err := s.country(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req top10Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.Reg.UpdateTop10(r.Context(), country, s.Reg.Today(), req.Artists); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) closePool(w http.ResponseWriter, r *http.Request) {
	country, err := s.country(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Winner == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	day := req.Day
	if day == 0 {
		day = s.Reg.Today()
	}
	if err := s.Settle.ClosePoolAndAnnounceWinner(r.Context(), country, day, req.Winner, req.Force); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pause(w http.ResponseWriter, _ *http.Request) {
	s.Admin.Pause()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unpause(w http.ResponseWriter, _ *http.Request) {
	s.Admin.Unpause()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	out, err := s.Admin.RequestWithdrawal(r.Context(), req.AmountCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) executeWithdrawal(w http.ResponseWriter, r *http.Request) {
	if err := s.Admin.ExecuteWithdrawal(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := s.Admin.EmergencyWithdraw(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"withdrawn_cents": amount})
}

func (s *Server) requestLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.oracleRequest(w, r, s.Bridge.RequestLeaderboardData)
}

func (s *Server) requestWinner(w http.ResponseWriter, r *http.Request) {
	s.oracleRequest(w, r, s.Bridge.RequestDailyWinner)
}

func (s *Server) oracleRequest(w http.ResponseWriter, r *http.Request, issue func(ctx context.Context, c domain.Country) (string, error)) {
	country, err := s.country(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := issue(r.Context(), country)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"request_id": id})
}

// --- oráculo ---

func (s *Server) fulfillLeaderboard(w http.ResponseWriter, r *http.Request) {
	var req fulfillLeaderboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	country, err := domain.ParseCountry(req.Country, s.Countries)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Bridge.FulfillLeaderboardData(r.Context(), s.principal(r), req.RequestID, country, req.Artists); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fulfillWinner(w http.ResponseWriter, r *http.Request) {
	var req fulfillWinnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	country, err := domain.ParseCountry(req.Country, s.Countries)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Bridge.FulfillDailyWinner(r.Context(), s.principal(r), req.RequestID, country, req.Artist); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError mapeia a taxonomia de erros do domínio para status HTTP.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotOwner), errors.Is(err, domain.ErrOnlyOracle):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidCountry),
		errors.Is(err, domain.ErrInvalidArtistCount),
		errors.Is(err, domain.ErrBetAmountZero),
		errors.Is(err, domain.ErrBetTooHigh),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrArtistNotInLeaderboard):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrBetNotFound),
		errors.Is(err, domain.ErrWithdrawalNotFound),
		errors.Is(err, domain.ErrUnknownRequest),
		errors.Is(err, domain.ErrNoPayoutToClaim):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPoolNotOpen),
		errors.Is(err, domain.ErrPoolAlreadyClosed),
		errors.Is(err, domain.ErrPoolNotReadyToClose),
		errors.Is(err, domain.ErrBetAlreadyPlaced),
		errors.Is(err, domain.ErrBetAlreadySettled),
		errors.Is(err, domain.ErrBettingClosed),
		errors.Is(err, domain.ErrRequestAlreadyFulfilled),
		errors.Is(err, domain.ErrRequestMismatch),
		errors.Is(err, domain.ErrInsufficientSurplus),
		errors.Is(err, domain.ErrCooldownActive),
		errors.Is(err, domain.ErrPaused):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
