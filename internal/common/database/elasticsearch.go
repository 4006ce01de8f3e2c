// internal/common/database/elasticsearch.go
package database

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"applybot/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient is the search mirror for application records. It only
// writes; the source of truth stays in Postgres.
type ElasticsearchClient struct {
	client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{client: es}, nil
}

// Ping tests the Elasticsearch connection.
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.client.Ping(
		c.client.Ping.WithContext(pingCtx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// IndexDocument stores one JSON document under the given id, overwriting any
// previous version.
func (c *ElasticsearchClient) IndexDocument(ctx context.Context, index, id string, body []byte) error {
	res, err := c.client.Index(
		index,
		bytes.NewReader(body),
		c.client.Index.WithDocumentID(id),
		c.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch rejected document %s: %s", id, res.Status())
	}
	return nil
}
