package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"ride-etl/utils"
)

// ElasticConfig contains Elasticsearch connection settings.
type ElasticConfig struct {
	URL      string
	Username string
	Password string
}

// ElasticIndexer publishes documents to an Elasticsearch cluster. Document
// ids are generated by the cluster.
type ElasticIndexer struct {
	client *elasticsearch.Client
	logger *utils.Logger
}

// NewElasticIndexer builds a client for cfg. No request is made until Ping.
func NewElasticIndexer(cfg *ElasticConfig, logger *utils.Logger) (*ElasticIndexer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("elasticsearch URL required")
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{cfg.URL},
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticIndexer{client: client, logger: logger}, nil
}

func (e *ElasticIndexer) Name() string {
	return "elasticsearch"
}

func (e *ElasticIndexer) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return &Error{Op: "Ping", Err: ErrBackendUnavailable, Msg: err.Error()}
	}
	defer drain(res)
	if res.IsError() {
		return &Error{Op: "Ping", Err: ErrBackendUnavailable, Msg: res.Status()}
	}
	return nil
}

func (e *ElasticIndexer) Recreate(ctx context.Context, index string) error {
	exists, err := e.client.Indices.Exists([]string{index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return &Error{Op: "Recreate", Err: ErrBackendUnavailable, Msg: err.Error()}
	}
	drain(exists)

	if exists.StatusCode == http.StatusOK {
		res, err := e.client.Indices.Delete([]string{index}, e.client.Indices.Delete.WithContext(ctx))
		if err != nil {
			return &Error{Op: "Recreate", Err: ErrBackendUnavailable, Msg: err.Error()}
		}
		if err := responseError(res); err != nil {
			return &Error{Op: "Recreate", Err: err, Msg: "delete " + index}
		}
		e.logger.Info("Deleted existing index %s", index)
	}

	res, err := e.client.Indices.Create(index, e.client.Indices.Create.WithContext(ctx))
	if err != nil {
		return &Error{Op: "Recreate", Err: ErrBackendUnavailable, Msg: err.Error()}
	}
	if err := responseError(res); err != nil {
		return &Error{Op: "Recreate", Err: err, Msg: "create " + index}
	}
	return nil
}

func (e *ElasticIndexer) Index(ctx context.Context, index string, doc Document) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", &Error{Op: "Index", Err: ErrIndexingFailed, Msg: err.Error()}
	}

	res, err := e.client.Index(index, bytes.NewReader(body), e.client.Index.WithContext(ctx))
	if err != nil {
		return "", &Error{Op: "Index", Err: ErrBackendUnavailable, Msg: err.Error()}
	}
	defer drain(res)
	if res.IsError() {
		return "", &Error{Op: "Index", Err: ErrIndexingFailed, Msg: readReason(res)}
	}

	var created struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		return "", &Error{Op: "Index", Err: err, Msg: "decode response"}
	}
	return created.ID, nil
}

func (e *ElasticIndexer) Refresh(ctx context.Context, index string) error {
	res, err := e.client.Indices.Refresh(
		e.client.Indices.Refresh.WithIndex(index),
		e.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return &Error{Op: "Refresh", Err: ErrBackendUnavailable, Msg: err.Error()}
	}
	if err := responseError(res); err != nil {
		return &Error{Op: "Refresh", Err: err, Msg: index}
	}
	return nil
}

func (e *ElasticIndexer) Count(ctx context.Context, index string) (uint64, error) {
	res, err := e.client.Count(
		e.client.Count.WithIndex(index),
		e.client.Count.WithContext(ctx),
	)
	if err != nil {
		return 0, &Error{Op: "Count", Err: ErrBackendUnavailable, Msg: err.Error()}
	}
	defer drain(res)
	if res.IsError() {
		return 0, &Error{Op: "Count", Err: statusError(res), Msg: readReason(res)}
	}

	var body struct {
		Count uint64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, &Error{Op: "Count", Err: err, Msg: "decode response"}
	}
	return body.Count, nil
}

// Close is a no-op; the client keeps no open handles beyond idle HTTP
// connections.
func (e *ElasticIndexer) Close() error {
	return nil
}

func responseError(res *esapi.Response) error {
	defer drain(res)
	if !res.IsError() {
		return nil
	}
	return fmt.Errorf("%w: %s", statusError(res), readReason(res))
}

func statusError(res *esapi.Response) error {
	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("elasticsearch returned %s", res.Status())
}

func readReason(res *esapi.Response) string {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.Error.Reason == "" {
		return res.Status()
	}
	return body.Error.Type + ": " + body.Error.Reason
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
