package chartfeed

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/odds"
)

// Entry é uma linha do leaderboard diário de um país.
type Entry struct {
	Rank   int    `json:"rank"`
	Artist string `json:"artist"` // chave normalizada (lowercase)
	Name   string `json:"name"`   // nome de exibição
	URL    string `json:"url"`
	Image  string `json:"image"`
	Odds   int64  `json:"odds"`
}

// CompactEntry é a forma enxuta usada pelo oracle-worker.
type CompactEntry struct {
	Artist string `json:"artist"`
	Odds   int64  `json:"odds"`
}

// Catálogo sintético por país. Intencionalmente maior que 10 para o sorteio
// diário variar o top-10.
var catalog = map[string][]string{
	"WW": {"Taylor Swift", "Drake", "Bad Bunny", "The Weeknd", "Billie Eilish", "Ed Sheeran", "Ariana Grande", "Post Malone", "Dua Lipa", "Travis Scott", "SZA", "Olivia Rodrigo"},
	"BR": {"Anitta", "Luísa Sonza", "Jão", "Marília Mendonça", "Gusttavo Lima", "Ludmilla", "Matuê", "Henrique e Juliano", "Ana Castela", "Pabllo Vittar", "Veigh", "Jorge e Mateus"},
	"DE": {"Apache 207", "Ayliva", "Shirin David", "Kontra K", "RAF Camora", "Bonez MC", "Capital Bra", "Nina Chuba", "Luciano", "Peter Fox", "Ski Aggu", "Badmómzjay"},
	"ES": {"Rosalía", "Quevedo", "Aitana", "Bizarrap", "Rauw Alejandro", "Myke Towers", "Saiko", "Mora", "Lola Índigo", "Omar Montes", "Feid", "Bad Gyal"},
	"FR": {"Aya Nakamura", "Jul", "Ninho", "Gazo", "SDM", "Damso", "Tiakola", "Angèle", "Werenoi", "Hamza", "SCH", "Dadju"},
	"IT": {"Sfera Ebbasta", "Lazza", "Geolier", "Annalisa", "Blanco", "Tananai", "Elodie", "Marracash", "Mahmood", "Angelina Mango", "Ultimo", "Ghali"},
	"PT": {"Ivandro", "Bárbara Bandeira", "Nininho Vaz Maia", "T-Rex", "Plutonio", "Bispo", "Carolina Deslandes", "Dillaz", "Ana Moura", "Calema", "Wet Bed Gang", "Julinho KSD"},
	"US": {"Morgan Wallen", "Taylor Swift", "Zach Bryan", "SZA", "Drake", "Luke Combs", "Doja Cat", "Olivia Rodrigo", "21 Savage", "Noah Kahan", "Jack Harlow", "Miley Cyrus"},
}

// fallback pra países sem catálogo próprio (inclui TEST)
var defaultCatalog = catalog["WW"]

// Feed gera e serve o leaderboard diário por país. O sorteio do dia é
// determinístico (seed = país + dia), então todas as réplicas e o vencedor
// concordam sem estado compartilhado.
type Feed struct {
	mu        sync.RWMutex
	countries []string
	clock     func() time.Time

	charts map[string][]Entry // país -> top-10 do dia corrente
	day    int64
}

func New(countries []string) *Feed {
	f := &Feed{
		countries: countries,
		clock:     func() time.Time { return time.Now().UTC() },
	}
	f.refreshLocked()
	return f
}

// WithClock troca o relógio (testes).
func (f *Feed) WithClock(clock func() time.Time) *Feed {
	f.clock = clock
	f.refreshLocked()
	return f
}

func (f *Feed) today() int64 {
	return domain.DayIndex(f.clock())
}

// Refresh recalcula os charts se o dia virou. Retorna true quando houve troca.
func (f *Feed) Refresh() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.day == f.today() && f.charts != nil {
		return false
	}
	f.refreshLocked()
	return true
}

func (f *Feed) refreshLocked() {
	day := f.today()
	charts := make(map[string][]Entry, len(f.countries))
	for _, c := range f.countries {
		charts[c] = buildChart(c, day)
	}
	f.charts = charts
	f.day = day
}

// buildChart sorteia um top-10 do catálogo do país com seed do dia e anexa
// as odds derivadas do rank.
func buildChart(country string, day int64) []Entry {
	pool := catalog[country]
	if pool == nil {
		pool = defaultCatalog
	}

	seed := day
	for _, r := range country {
		seed = seed*31 + int64(r)
	}
	rng := rand.New(rand.NewSource(seed))

	picked := append([]string(nil), pool...)
	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	top := picked[:domain.TopListSize]

	table, err := odds.BuildTable(top)
	if err != nil {
		// catálogos têm sempre >= 10 nomes distintos
		panic(err)
	}

	entries := make([]Entry, domain.TopListSize)
	for i, name := range top {
		key := domain.NormalizeArtist(name)
		slug := strings.ReplaceAll(string(key), " ", "-")
		entries[i] = Entry{
			Rank:   i + 1,
			Artist: string(key),
			Name:   name,
			URL:    fmt.Sprintf("https://charts.example.com/%s/artist/%s", strings.ToLower(country), slug),
			Image:  fmt.Sprintf("https://charts.example.com/img/%s.jpg", slug),
			Odds:   table[key],
		}
	}
	return entries
}

// Leaderboard devolve o top-10 do dia do país, ou erro se o país não é servido.
func (f *Feed) Leaderboard(country string) ([]Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	chart, ok := f.charts[country]
	if !ok {
		return nil, domain.ErrInvalidCountry
	}
	out := make([]Entry, len(chart))
	copy(out, chart)
	return out, nil
}

// Compact projeta o leaderboard na forma consumida pelo oracle-worker.
func (f *Feed) Compact(country string) ([]CompactEntry, error) {
	chart, err := f.Leaderboard(country)
	if err != nil {
		return nil, err
	}
	out := make([]CompactEntry, len(chart))
	for i, e := range chart {
		out[i] = CompactEntry{Artist: e.Name, Odds: e.Odds}
	}
	return out, nil
}

// DailyWinner devolve a chave normalizada do #1 do dia.
func (f *Feed) DailyWinner(country string) (string, error) {
	chart, err := f.Leaderboard(country)
	if err != nil {
		return "", err
	}
	return chart[0].Artist, nil
}

// Countries lista os países servidos.
func (f *Feed) Countries() []string {
	return append([]string(nil), f.countries...)
}
