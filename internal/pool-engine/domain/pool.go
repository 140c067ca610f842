package domain

import (
	"strings"
	"time"
)

// ArtistKey é a chave canônica de um artista: minúscula e sem espaços nas
// pontas. Toda indexação (odds, apostas, vencedor) usa esta forma.
type ArtistKey string

// NormalizeArtist converte um nome como veio do feed para a chave canônica.
func NormalizeArtist(name string) ArtistKey {
	return ArtistKey(strings.ToLower(strings.TrimSpace(name)))
}

// TopListSize é o tamanho fixo da lista de artistas aceita pelo updateTop10.
const TopListSize = 10

// DayIndex é o índice de dia usado como parte da chave do pool (epoch/86400).
func DayIndex(t time.Time) int64 { return t.UTC().Unix() / 86400 }

// PoolKey identifica um pool: país × dia.
type PoolKey struct {
	Country Country
	Day     int64
}

// Pool é o mercado de apostas de um país em um dia. Depois de Closed=true a
// estrutura é imutável, exceto os campos de liquidação das apostas.
type Pool struct {
	Country Country
	Day     int64

	OpeningTime          time.Time
	ScheduledClosingTime time.Time
	ActualClosingTime    time.Time

	// TopArtists preserva os 10 nomes na ordem do chart (duplicatas contam).
	TopArtists []string
	// Odds por artista (x100), calculadas uma única vez por fulfillment.
	Odds map[ArtistKey]int64

	Closed        bool
	WinningArtist ArtistKey

	TotalBetCents     int64
	TotalBetsByArtist map[ArtistKey]int64

	// Bets indexa a aposta de cada apostador neste pool (no máximo uma).
	Bets map[string]*Bet
}

// Key retorna a chave país × dia do pool.
func (p *Pool) Key() PoolKey { return PoolKey{Country: p.Country, Day: p.Day} }

// AcceptingBets diz se o pool aceita apostas no instante dado.
func (p *Pool) AcceptingBets(now time.Time) bool {
	return !p.Closed && !now.Before(p.OpeningTime) && now.Before(p.ScheduledClosingTime)
}

// OddsFor devolve as odds travadas para um artista, caindo para as odds de
// azarão quando ele não aparece no top-10.
func (p *Pool) OddsFor(artist ArtistKey) int64 {
	if o, ok := p.Odds[artist]; ok {
		return o
	}
	return OutsiderOdds
}

// Snapshot devolve uma cópia imutável para leitura fora do lock do pool.
func (p *Pool) Snapshot() PoolSnapshot {
	s := PoolSnapshot{
		Country:              string(p.Country),
		Day:                  p.Day,
		OpeningTime:          p.OpeningTime.Unix(),
		ScheduledClosingTime: p.ScheduledClosingTime.Unix(),
		Closed:               p.Closed,
		WinningArtist:        string(p.WinningArtist),
		TotalBetCents:        p.TotalBetCents,
		TopArtists:           append([]string(nil), p.TopArtists...),
		Odds:                 make(map[string]int64, len(p.Odds)),
		TotalBetsByArtist:    make(map[string]int64, len(p.TotalBetsByArtist)),
	}
	if !p.ActualClosingTime.IsZero() {
		s.ActualClosingTime = p.ActualClosingTime.Unix()
	}
	for k, v := range p.Odds {
		s.Odds[string(k)] = v
	}
	for k, v := range p.TotalBetsByArtist {
		s.TotalBetsByArtist[string(k)] = v
	}
	return s
}

// PoolSnapshot é a visão serializável de um pool, devolvida pelas leituras.
type PoolSnapshot struct {
	Country              string           `json:"country"`
	Day                  int64            `json:"day"`
	OpeningTime          int64            `json:"opening_time"`
	ScheduledClosingTime int64            `json:"scheduled_closing_time"`
	ActualClosingTime    int64            `json:"actual_closing_time,omitempty"`
	TopArtists           []string         `json:"top_artists,omitempty"`
	Odds                 map[string]int64 `json:"odds,omitempty"`
	Closed               bool             `json:"closed"`
	WinningArtist        string           `json:"winning_artist,omitempty"`
	TotalBetCents        int64            `json:"total_bet_cents"`
	TotalBetsByArtist    map[string]int64 `json:"total_bets_by_artist,omitempty"`
}
