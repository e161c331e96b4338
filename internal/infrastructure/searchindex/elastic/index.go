// Package elastic maintains the denormalized search projection. Documents
// are indexed by document id, so reindexing the same document overwrites
// rather than duplicates.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/finvault/docclassify/internal/core/domain"
)

// mapping types follow the retrieval contract: full-text content, keyword
// facets, numeric uploader and confidence, date upload time.
const indexMapping = `{
	"mappings": {
		"properties": {
			"content":     {"type": "text"},
			"filename":    {"type": "keyword"},
			"file_type":   {"type": "keyword"},
			"category":    {"type": "keyword"},
			"uploader_id": {"type": "long"},
			"upload_time": {"type": "date"},
			"confidence":  {"type": "float"}
		}
	}
}`

type Index struct {
	client *elasticsearch.Client
	index  string
}

func New(addresses []string, index string) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("new elasticsearch client: %w", err)
	}
	return &Index{client: client, index: index}, nil
}

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{i.index}}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}
	if res.StatusCode != 404 {
		return fmt.Errorf("check index: unexpected status %d", res.StatusCode)
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: i.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("create index: %s", createRes.String())
	}
	return nil
}

func (i *Index) Upsert(ctx context.Context, projection *domain.SearchProjection) error {
	payload, err := json.Marshal(projection)
	if err != nil {
		return fmt.Errorf("marshal projection: %w", err)
	}

	res, err := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: strconv.FormatInt(projection.DocumentID, 10),
		Body:       bytes.NewReader(payload),
	}.Do(ctx, i.client)
	if err != nil {
		return domain.WrapError(domain.ErrStoreWrite, "index projection",
			fmt.Errorf("document %d: %w", projection.DocumentID, err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return domain.WrapError(domain.ErrStoreWrite, "index projection",
			fmt.Errorf("document %d: %s", projection.DocumentID, res.String()))
	}
	return nil
}
