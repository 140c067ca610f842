package domain

import "strings"

// Country é o código de país de um pool diário (enumeração fechada).
type Country string

const (
	CountryWW   Country = "WW"
	CountryBR   Country = "BR"
	CountryDE   Country = "DE"
	CountryES   Country = "ES"
	CountryFR   Country = "FR"
	CountryIT   Country = "IT"
	CountryPT   Country = "PT"
	CountryUS   Country = "US"
	CountryTEST Country = "TEST" // apenas fora de produção
)

// ParseCountry normaliza e valida um código contra a lista habilitada na config.
func ParseCountry(raw string, enabled []string) (Country, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	for _, c := range enabled {
		if code == strings.ToUpper(c) {
			return Country(code), nil
		}
	}
	return "", ErrInvalidCountry
}

// CountryName retorna o nome legível do país (usado pelo feed).
func CountryName(c Country) string {
	switch c {
	case CountryBR:
		return "Brazil"
	case CountryDE:
		return "Germany"
	case CountryES:
		return "Spain"
	case CountryFR:
		return "France"
	case CountryIT:
		return "Italy"
	case CountryPT:
		return "Portugal"
	case CountryUS:
		return "United States"
	case CountryWW:
		return "Global"
	default:
		return string(c)
	}
}
