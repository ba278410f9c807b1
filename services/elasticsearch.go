package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/elastic/elastic-transport-go/v8/elastictransport"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"blog-entries-service/config"
	"blog-entries-service/logger"
	"blog-entries-service/metrics"
	"blog-entries-service/models"
)

// BlogStore is the backend used by the HTTP handlers.
type BlogStore interface {
	Add(ctx context.Context, blog models.Blog) (models.IndexAck, error)
	FindByID(ctx context.Context, id string) (*models.Blog, error)
	GetBlogs(ctx context.Context, user string) ([]models.Blog, error)
	Ping(ctx context.Context) error
}

type ElasticsearchClient struct {
	client     *elasticsearch.Client
	index      models.IndexInfo
	searchSize int
	indexReady atomic.Bool
}

var _ BlogStore = (*ElasticsearchClient)(nil)

func NewElasticsearchClient(cfg config.ElasticsearchConfig, searchSize int) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL()},
		Username:  cfg.Username,
		Password:  cfg.Password,
		// one attempt per request, failures go straight back to the caller
		DisableRetry: true,
	}
	if cfg.Insecure {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}
	if logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		esCfg.Logger = &elastictransport.TextLogger{
			Output:             logger.Logger.WriterLevel(logrus.DebugLevel),
			EnableRequestBody:  true,
			EnableResponseBody: true,
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating elasticsearch client")
	}
	return &ElasticsearchClient{
		client:     client,
		index:      models.IndexInfo{IndexName: cfg.IndexName, IndexType: cfg.IndexType},
		searchSize: searchSize,
	}, nil
}

// CheckCluster calls the info endpoint until it answers or attempts run out
// and warns when the cluster name differs from the configured one.
func (es *ElasticsearchClient) CheckCluster(ctx context.Context, clusterName string, attempts uint) error {
	var info struct {
		ClusterName string `json:"cluster_name"`
		Version     struct {
			Number string `json:"number"`
		} `json:"version"`
	}

	if attempts == 0 {
		attempts = 1
	}
	err := retry.Do(
		func() error {
			res, err := es.client.Info(es.client.Info.WithContext(ctx))
			if err != nil {
				return transportError(ctx, "info", err)
			}
			defer res.Body.Close()
			if res.IsError() {
				return responseError("info", res)
			}
			return json.NewDecoder(res.Body).Decode(&info)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Logger.Warnf("elasticsearch not reachable (attempt %d): %v", n+1, err)
		}),
	)
	if err != nil {
		return err
	}

	entry := logger.WithFields(logrus.Fields{
		"cluster": info.ClusterName,
		"version": info.Version.Number,
	})
	if clusterName != "" && info.ClusterName != clusterName {
		entry.Warnf("connected to cluster %q, expected %q", info.ClusterName, clusterName)
		return nil
	}
	entry.Info("connected to elasticsearch")
	return nil
}

func (es *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := es.client.Ping(es.client.Ping.WithContext(ctx))
	if err != nil {
		return transportError(ctx, "ping", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("ping", res)
	}
	return nil
}

var blogMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":       map[string]interface{}{"type": "keyword"},
			"user":     map[string]interface{}{"type": "keyword"},
			"title":    map[string]interface{}{"type": "text"},
			"body":     map[string]interface{}{"type": "text"},
			"postDate": map[string]interface{}{"type": "keyword"},
		},
	},
}

// EnsureIndex creates the blog index with its mapping unless it already exists.
func (es *ElasticsearchClient) EnsureIndex(ctx context.Context) error {
	existsReq := esapi.IndicesExistsRequest{
		Index: []string{es.index.IndexName},
	}
	existsRes, err := existsReq.Do(ctx, es.client)
	if err != nil {
		return transportError(ctx, "index exists", err)
	}
	existsRes.Body.Close()
	if existsRes.StatusCode == http.StatusOK {
		es.indexReady.Store(true)
		return nil
	}
	if existsRes.StatusCode != http.StatusNotFound {
		return &ResponseError{Op: "index exists", Status: existsRes.StatusCode}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(blogMapping); err != nil {
		return err
	}
	req := esapi.IndicesCreateRequest{
		Index: es.index.IndexName,
		Body:  &buf,
	}
	res, err := req.Do(ctx, es.client)
	if err != nil {
		return transportError(ctx, "create index", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		rerr := responseError("create index", res)
		// another instance won the race
		if strings.Contains(rerr.Body, "resource_already_exists_exception") {
			es.indexReady.Store(true)
			return nil
		}
		return rerr
	}
	es.indexReady.Store(true)
	logger.WithFields(logrus.Fields{"index": es.index.IndexName}).Info("index created")
	return nil
}

// do executes req and turns transport failures into ErrNodeUnavailable.
func (es *ElasticsearchClient) do(ctx context.Context, rc models.RequestContext, req esapi.Request) (*esapi.Response, error) {
	res, err := req.Do(ctx, es.client)
	if err != nil {
		return nil, transportError(ctx, rc.Operation, errors.Wrapf(err, "%s/%s", rc.IndexName, rc.Target))
	}
	return res, nil
}

// transportError classifies a failed call. A cancelled or expired request
// context is the caller going away, not the index server.
func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.BackendErrors.WithLabelValues(op, "canceled").Inc()
		return errors.Wrap(ctxErr, op)
	}
	metrics.BackendErrors.WithLabelValues(op, "unavailable").Inc()
	return errors.Wrapf(ErrNodeUnavailable, "%s: %v", op, err)
}

func responseError(op string, res *esapi.Response) *ResponseError {
	body, _ := io.ReadAll(res.Body)
	return &ResponseError{Op: op, Status: res.StatusCode, Body: string(body)}
}

func contextFields(rc models.RequestContext) logrus.Fields {
	return logrus.Fields{
		"index":     rc.IndexName,
		"type":      rc.IndexType,
		"operation": rc.Operation,
		"target":    rc.Target,
	}
}
