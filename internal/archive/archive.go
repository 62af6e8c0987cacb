// internal/archive/archive.go
// Package archive keeps a searchable copy of completed exchanges in
// Elasticsearch. Indexing is best-effort: a conversation never fails because
// the archive is down.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/models"
)

const defaultSearchLimit = 10

var ErrArchiveUnavailable = errors.New("ARCHIVE_UNAVAILABLE")

// document is the indexed form of one exchange.
type document struct {
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	Intent    string    `json:"intent"`
	ToolsUsed []string  `json:"tools_used,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Hit is one archived exchange returned by Search.
type Hit struct {
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	Intent    string    `json:"intent"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive indexes and searches past conversation exchanges.
type Archive struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
}

// NewArchive creates an archive over the given Elasticsearch client.
func NewArchive(config *Config, client *elasticsearch.Client, log logger.Logger) *Archive {
	return &Archive{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{
			"component": "archive",
		}),
	}
}

// Index stores a completed exchange. Callers treat failures as non-fatal.
func (a *Archive) Index(ctx context.Context, exchange models.ConversationExchange) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	doc := document{
		SessionID: exchange.SessionID,
		Question:  exchange.Question,
		Response:  exchange.Response,
		Intent:    string(exchange.Intent),
		ToolsUsed: exchange.ToolsUsed,
		CreatedAt: exchange.CreatedAt,
	}
	body, _ := json.Marshal(doc)

	req := esapi.IndexRequest{
		Index:      a.config.Index,
		DocumentID: exchange.ID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, a.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrArchiveUnavailable, res.Status())
	}

	a.logger.Debug("exchange archived", map[string]interface{}{
		"session_id": exchange.SessionID,
		"intent":     string(exchange.Intent),
	})

	return nil
}

// Search finds archived exchanges of one session whose question or response
// matches the query text, newest first.
func (a *Archive) Search(ctx context.Context, sessionID, query string, limit int) ([]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultSearchLimit
	}

	body, _ := json.Marshal(searchBody(sessionID, query))

	req := esapi.SearchRequest{
		Index: []string{a.config.Index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}

	res, err := req.Do(ctx, a.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrArchiveUnavailable, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source Hit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, h.Source)
	}

	a.logger.Debug("archive searched", map[string]interface{}{
		"session_id": sessionID,
		"hits":       len(hits),
	})

	return hits, nil
}

// searchBody builds a match query over question and response restricted to one
// session, sorted newest first.
func searchBody(sessionID, query string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  query,
							"fields": []string{"question^2", "response"},
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"session_id": sessionID},
					},
				},
			},
		},
		"sort": []map[string]interface{}{
			{"created_at": "desc"},
		},
	}
}
