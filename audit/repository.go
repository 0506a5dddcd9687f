// audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/clearops/clearance/model"
)

const evidenceIndex = "evidence-entries"

type Repository interface {
	AppendEntry(ctx context.Context, entry model.EvidenceEntryV1) error
	ListEntries(ctx context.Context, approvalID string) ([]model.EvidenceEntryV1, error)
	LatestEntry(ctx context.Context, approvalID string) (*model.EvidenceEntryV1, error)
	CountEntries(ctx context.Context, approvalID string) (int, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient}, nil
}

// AppendEntry indexes one evidence entry. Entries are immutable; the
// document id is the evidence id, so a duplicate append overwrites with
// identical content rather than forking the ledger.
func (r *ElasticsearchRepository) AppendEntry(ctx context.Context, entry model.EvidenceEntryV1) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      evidenceIndex,
		DocumentID: entry.EvidenceID,
		Body:       strings.NewReader(string(data)),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing evidence entry: %s", res.String())
	}

	return nil
}

// ListEntries returns the full chain for one approval in append order.
func (r *ElasticsearchRepository) ListEntries(ctx context.Context, approvalID string) ([]model.EvidenceEntryV1, error) {
	return r.search(ctx, approvalID, 10000, "asc")
}

// LatestEntry returns the chain tail for one approval, or nil for an
// empty chain.
func (r *ElasticsearchRepository) LatestEntry(ctx context.Context, approvalID string) (*model.EvidenceEntryV1, error) {
	entries, err := r.search(ctx, approvalID, 1, "desc")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// CountEntries returns the chain length for one approval.
func (r *ElasticsearchRepository) CountEntries(ctx context.Context, approvalID string) (int, error) {
	var buf strings.Builder
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"approvalId": approvalID,
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return 0, err
	}

	res, err := r.esClient.Count(
		r.esClient.Count.WithContext(ctx),
		r.esClient.Count.WithIndex(evidenceIndex),
		r.esClient.Count.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("error counting evidence entries: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return 0, err
	}
	count, ok := rmap["count"].(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected count response shape")
	}
	return int(count), nil
}

func (r *ElasticsearchRepository) search(ctx context.Context, approvalID string, size int, order string) ([]model.EvidenceEntryV1, error) {
	var buf strings.Builder
	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"approvalId": approvalID,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{
				"occurredAtIso": map[string]interface{}{"order": order},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(evidenceIndex),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching evidence entries: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return nil, err
	}

	hits := rmap["hits"].(map[string]interface{})["hits"].([]interface{})
	entries := make([]model.EvidenceEntryV1, len(hits))
	for i, hit := range hits {
		source := hit.(map[string]interface{})["_source"]
		data, _ := json.Marshal(source)
		json.Unmarshal(data, &entries[i])
	}

	return entries, nil
}
