package pipeline

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"ride-etl/config"
	"ride-etl/search"
	"ride-etl/storage"
	"ride-etl/utils"
)

// PublishResult reports the outcome of a publish.
type PublishResult struct {
	Backend string
	Index   string
	Indexed int
	// Count is the document count the backend reports after refresh.
	Count uint64
}

// Publisher replaces the search index with the rows of the clean file.
type Publisher struct {
	cfg        *config.Config
	fs         afero.Fs
	logger     *utils.Logger
	newIndexer func(*config.Config, *utils.Logger) (search.Indexer, error)
}

func NewPublisher(cfg *config.Config, fs afero.Fs, logger *utils.Logger) *Publisher {
	return &Publisher{cfg: cfg, fs: fs, logger: logger.Named("publisher"), newIndexer: search.New}
}

// Publish recreates the index and indexes one document per clean row.
func (p *Publisher) Publish(ctx context.Context) (_ *PublishResult, err error) {
	indexer, err := p.newIndexer(p.cfg, p.logger)
	if err != nil {
		p.logger.Error("Failed to create %s indexer: %v", p.cfg.SearchBackend, err)
		return nil, err
	}
	defer closeInto(&err, indexer, "indexer")

	if err := indexer.Ping(ctx); err != nil {
		p.logger.Error("Cannot reach %s: %v", indexer.Name(), err)
		return nil, err
	}
	p.logger.Debug("Connected to %s", indexer.Name())

	index := p.cfg.IndexName
	if err := indexer.Recreate(ctx, index); err != nil {
		p.logger.Error("Failed to recreate index %s: %v", index, err)
		return nil, err
	}

	header, rows, err := storage.ReadAll(p.fs, p.cfg.CleanCSVPath)
	if err != nil {
		p.logger.Error("Failed to read clean file: %v", err)
		return nil, err
	}

	numeric := numericColumns(header, rows)
	for i, row := range rows {
		if _, err := indexer.Index(ctx, index, toDocument(header, row, numeric)); err != nil {
			p.logger.Error("Failed to index row %d: %v", i+1, err)
			return nil, fmt.Errorf("index row %d: %w", i+1, err)
		}
	}

	if err := indexer.Refresh(ctx, index); err != nil {
		p.logger.Error("Failed to refresh index %s: %v", index, err)
		return nil, err
	}
	count, err := indexer.Count(ctx, index)
	if err != nil {
		p.logger.Error("Failed to count documents in %s: %v", index, err)
		return nil, err
	}

	p.logger.Info("Uploaded %d documents to %s index %s", len(rows), indexer.Name(), index)
	return &PublishResult{Backend: indexer.Name(), Index: index, Indexed: len(rows), Count: count}, nil
}

// numericColumns marks a column numeric when every non-empty value parses
// as a finite float and at least one value is present.
func numericColumns(header []string, rows [][]string) []bool {
	numeric := make([]bool, len(header))
	for i := range header {
		seen := false
		numeric[i] = true
		for _, row := range rows {
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			seen = true
			if f, err := strconv.ParseFloat(v, 64); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				numeric[i] = false
				break
			}
		}
		numeric[i] = numeric[i] && seen
	}
	return numeric
}

func toDocument(header, row []string, numeric []bool) search.Document {
	doc := make(search.Document, len(header))
	for i, name := range header {
		v := row[i]
		switch {
		case strings.TrimSpace(v) == "":
			doc[name] = nil
		case numeric[i]:
			f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
			doc[name] = f
		default:
			doc[name] = v
		}
	}
	return doc
}
