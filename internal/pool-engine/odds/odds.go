package odds

import (
	"github.com/chartsbet/chartsbet-core/internal/pool-engine/domain"
)

// Cotações derivadas do rank no chart, sempre x100 (120 = 1.20x).
//
// Para um artista que aparece k vezes a partir da posição p (1-based), o rank
// efetivo é o ponto médio do intervalo [p, p+k-1]:
//
//	odds = 120 + (rankEfetivo - 1) * 20
//
// O ponto médio pode ser fracionário (p=1, k=2 => 1.5 => 130); a forma
// inteira abaixo evita ponto flutuante.
func forRun(firstRank, appearances int) int64 {
	return 120 + int64(2*firstRank+appearances-3)*10
}

// ForRank é a cotação de um artista único na posição r (1..10).
func ForRank(r int) int64 { return forRun(r, 1) }

// BuildTable calcula as odds de cada artista distinto de uma lista top-10.
// Duplicatas são significativas: contam aparições e deslocam o rank efetivo.
// A tabela devolvida é montada por inteiro antes de ser publicada no pool,
// então nunca se observa um estado parcialmente recalculado.
func BuildTable(topArtists []string) (map[domain.ArtistKey]int64, error) {
	if len(topArtists) != domain.TopListSize {
		return nil, domain.ErrInvalidArtistCount
	}

	firstRank := make(map[domain.ArtistKey]int, domain.TopListSize)
	appearances := make(map[domain.ArtistKey]int, domain.TopListSize)
	for i, name := range topArtists {
		key := domain.NormalizeArtist(name)
		if _, seen := firstRank[key]; !seen {
			firstRank[key] = i + 1
		}
		appearances[key]++
	}

	table := make(map[domain.ArtistKey]int64, len(firstRank))
	for key, first := range firstRank {
		table[key] = forRun(first, appearances[key])
	}
	return table, nil
}
