package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OddsCache publica a tabela de odds de cada pool no Redis para consumo
// fora do motor (listagens, validação de clientes). O registry em memória
// continua sendo a fonte de verdade.
type OddsCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewOddsCache(c *redis.Client, ttl time.Duration) *OddsCache {
	return &OddsCache{Client: c, TTL: ttl}
}

// key gera a chave Redis da tabela de odds de um pool
func key(country string, day int64) string {
	return fmt.Sprintf("odds:%s:%d", country, day)
}

// SetTop10 grava a tabela inteira (artista canônico -> odds x100).
func (c *OddsCache) SetTop10(ctx context.Context, country string, day int64, table map[string]int64) error {
	b, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key(country, day), b, c.TTL).Err()
}

// GetTable devolve a tabela do pool, se presente no cache.
func (c *OddsCache) GetTable(ctx context.Context, country string, day int64) (map[string]int64, bool, error) {
	b, err := c.Client.Get(ctx, key(country, day)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var table map[string]int64
	if jerr := json.Unmarshal(b, &table); jerr != nil {
		return nil, false, jerr
	}
	return table, true, nil
}
