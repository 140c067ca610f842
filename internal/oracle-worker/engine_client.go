package oracleworker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// EngineClient fala com a API do pool-engine. As rotas de admin usam a key
// do owner; os fulfillments usam a key do oráculo.
type EngineClient struct {
	BaseURL      string
	OwnerAPIKey  string
	OracleAPIKey string
	HTTP         *http.Client
}

func NewEngineClient(baseURL, ownerKey, oracleKey string) *EngineClient {
	return &EngineClient{
		BaseURL:      baseURL,
		OwnerAPIKey:  ownerKey,
		OracleAPIKey: oracleKey,
		HTTP:         http.DefaultClient,
	}
}

func (c *EngineClient) post(ctx context.Context, path, apiKey string, payload any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("engine http " + resp.Status + " on " + path)
	}
	return nil
}

// OpenAllDailyPools abre os pools do dia (rota de owner). duration<=0 deixa
// o motor aplicar a duração padrão.
func (c *EngineClient) OpenAllDailyPools(ctx context.Context, duration time.Duration) error {
	return c.post(ctx, "/v1/admin/pools/open", c.OwnerAPIKey,
		map[string]int64{"duration_seconds": int64(duration / time.Second)})
}

// RequestLeaderboard pede ao motor que emita um pedido de top-10.
func (c *EngineClient) RequestLeaderboard(ctx context.Context, country string) error {
	return c.post(ctx, fmt.Sprintf("/v1/admin/oracle/leaderboard/%s", country), c.OwnerAPIKey, nil)
}

// RequestWinner pede ao motor que emita um pedido de vencedor do dia.
func (c *EngineClient) RequestWinner(ctx context.Context, country string) error {
	return c.post(ctx, fmt.Sprintf("/v1/admin/oracle/winner/%s", country), c.OwnerAPIKey, nil)
}

// FulfillLeaderboard entrega o top-10 referente a um request id.
func (c *EngineClient) FulfillLeaderboard(ctx context.Context, requestID, country string, artists []string) error {
	return c.post(ctx, "/v1/oracle/fulfill/leaderboard", c.OracleAPIKey, map[string]any{
		"request_id": requestID,
		"country":    country,
		"artists":    artists,
	})
}

// FulfillWinner entrega o vencedor referente a um request id.
func (c *EngineClient) FulfillWinner(ctx context.Context, requestID, country, artist string) error {
	return c.post(ctx, "/v1/oracle/fulfill/winner", c.OracleAPIKey, map[string]any{
		"request_id": requestID,
		"country":    country,
		"artist":     artist,
	})
}
