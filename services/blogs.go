package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"

	"blog-entries-service/logger"
	"blog-entries-service/metrics"
	"blog-entries-service/models"
)

func (es *ElasticsearchClient) Add(ctx context.Context, blog models.Blog) (models.IndexAck, error) {
	rc := models.GetRequestContext(es.index, models.OperationIndex, blog.ID)
	logger.WithFields(contextFields(rc)).Debug("indexing blog")

	// the mapping must exist before the first write, otherwise the index
	// is auto-created with a text "user" field
	if !es.indexReady.Load() {
		if err := es.EnsureIndex(ctx); err != nil {
			return models.IndexAck{}, err
		}
	}

	body, err := json.Marshal(blog)
	if err != nil {
		return models.IndexAck{}, errors.Wrap(err, "encoding blog")
	}
	req := esapi.IndexRequest{
		Index:      rc.IndexName,
		DocumentID: blog.ID,
		Body:       bytes.NewReader(body),
		// make the entry visible to searchid right away
		Refresh: "true",
	}
	res, err := es.do(ctx, rc, req)
	if err != nil {
		return models.IndexAck{}, err
	}
	defer res.Body.Close()
	if res.IsError() {
		metrics.BackendErrors.WithLabelValues(rc.Operation, "response").Inc()
		return models.IndexAck{}, responseError("index", res)
	}

	var indexRes struct {
		ID     string `json:"_id"`
		Index  string `json:"_index"`
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&indexRes); err != nil {
		return models.IndexAck{}, errors.Wrap(err, "decoding index response")
	}
	return models.IndexAck{ID: indexRes.ID, Index: indexRes.Index, Result: indexRes.Result}, nil
}

// FindByID returns nil without error when no document has the given id.
func (es *ElasticsearchClient) FindByID(ctx context.Context, id string) (*models.Blog, error) {
	rc := models.GetRequestContext(es.index, models.OperationGetByID, id)
	logger.WithFields(contextFields(rc)).Debug("fetching blog")

	req := esapi.GetRequest{
		Index:      rc.IndexName,
		DocumentID: id,
	}
	res, err := es.do(ctx, rc, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	// missing document or missing index
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		metrics.BackendErrors.WithLabelValues(rc.Operation, "response").Inc()
		return nil, responseError("get", res)
	}

	var getRes struct {
		Found  bool        `json:"found"`
		Source models.Blog `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&getRes); err != nil {
		return nil, errors.Wrap(err, "decoding get response")
	}
	if !getRes.Found {
		return nil, nil
	}
	return &getRes.Source, nil
}

// GetBlogs returns every blog owned by user, never nil. Results are read
// page by page, search.size hits at a time, ordered by id.
func (es *ElasticsearchClient) GetBlogs(ctx context.Context, user string) ([]models.Blog, error) {
	rc := models.GetRequestContext(es.index, models.OperationSearch, user)
	logger.WithFields(contextFields(rc)).Debug("searching blogs")

	blogs := []models.Blog{}
	var after []interface{}
	for {
		hits, err := es.searchPage(ctx, rc, user, after)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			blogs = append(blogs, hit.Source)
		}
		if len(hits) < es.searchSize {
			return blogs, nil
		}
		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return blogs, nil
		}
	}
}

type searchHit struct {
	Source models.Blog   `json:"_source"`
	Sort   []interface{} `json:"sort"`
}

func (es *ElasticsearchClient) searchPage(ctx context.Context, rc models.RequestContext, user string, after []interface{}) ([]searchHit, error) {
	queryBuf, err := es.buildUserQuery(user, after)
	if err != nil {
		return nil, errors.Wrap(err, "building search query")
	}
	req := esapi.SearchRequest{
		Index: []string{rc.IndexName},
		Body:  &queryBuf,
	}
	res, err := es.do(ctx, rc, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	// no index yet, so no blogs
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		metrics.BackendErrors.WithLabelValues(rc.Operation, "response").Inc()
		return nil, responseError("search", res)
	}

	var searchRes struct {
		Hits struct {
			Hits []searchHit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchRes); err != nil {
		return nil, errors.Wrap(err, "decoding search response")
	}
	return searchRes.Hits.Hits, nil
}

func (es *ElasticsearchClient) buildUserQuery(user string, after []interface{}) (bytes.Buffer, error) {
	var buf bytes.Buffer
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"user": user,
			},
		},
		"size": es.searchSize,
		"sort": []interface{}{
			map[string]interface{}{"id": "asc"},
		},
	}
	if len(after) > 0 {
		query["search_after"] = after
	}
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return buf, err
	}
	return buf, nil
}
