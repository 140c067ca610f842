package oracleworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// CompactTrack é a entrada do feed compacto de leaderboard.
type CompactTrack struct {
	Artist string `json:"artist"`
	Odds   int64  `json:"odds"`
}

// FeedClient consome o serviço de charts: o top-10 compacto e o vencedor
// do dia já apurado.
type FeedClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewFeedClient(baseURL string) *FeedClient {
	return &FeedClient{BaseURL: baseURL, HTTP: http.DefaultClient}
}

// Leaderboard busca GET /leaderboard/{country}?compact=true e devolve os
// nomes na ordem do chart (no máximo 10).
func (f *FeedClient) Leaderboard(ctx context.Context, country string) ([]string, error) {
	url := fmt.Sprintf("%s/leaderboard/%s?compact=true", f.BaseURL, country)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, errors.New("feed http " + resp.Status)
	}
	var tracks []CompactTrack
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		return nil, err
	}
	if len(tracks) > 10 {
		tracks = tracks[:10]
	}
	artists := make([]string, 0, len(tracks))
	for _, t := range tracks {
		artists = append(artists, t.Artist)
	}
	return artists, nil
}

// DailyWinner busca GET /daily-winner/{country}.
func (f *FeedClient) DailyWinner(ctx context.Context, country string) (string, error) {
	url := fmt.Sprintf("%s/daily-winner/%s", f.BaseURL, country)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", errors.New("feed http " + resp.Status)
	}
	var winner string
	if err := json.NewDecoder(resp.Body).Decode(&winner); err != nil {
		return "", err
	}
	if winner == "" {
		return "", errors.New("feed returned empty winner")
	}
	return winner, nil
}
