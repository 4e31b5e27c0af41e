package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/alumni/services/events/config"
	"example.com/alumni/services/events/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	body   map[string]interface{}
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path, body: body})

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestIndexAnalytics(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusCreated, `{"result":"created"}`)

	client, err := NewElasticClient(config.ElasticConfig{URL: srv.URL, Prefix: "events", Index: "analytics"})
	require.NoError(t, err)

	rate := 70.0
	a := &models.EventAnalytics{EventID: uuid.New(), EventTitle: "Gala", TotalInvitations: 10, ConfirmedAttendees: 7, AttendanceRate: &rate}
	require.NoError(t, client.IndexAnalytics(context.Background(), a))

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/events-analytics/_doc/"+a.EventID.String(), req.path)
	assert.Equal(t, "Gala", req.body["event_title"])
	assert.Equal(t, 70.0, req.body["attendance_rate"])
	assert.Equal(t, 0.0, req.body["engagement_rate"])
}

func TestIndexAnalytics_ErrorResponse(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadRequest, `{"error":{"type":"mapper_parsing_exception"}}`)

	client, err := NewElasticClient(config.ElasticConfig{URL: srv.URL, Prefix: "events", Index: "analytics"})
	require.NoError(t, err)

	err = client.IndexAnalytics(context.Background(), &models.EventAnalytics{EventID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestSearchAnalytics(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"hits":{"hits":[{"_source":{"event_title":"Gala"}},{"_source":{"event_title":"Picnic"}}]}}`)

	client, err := NewElasticClient(config.ElasticConfig{URL: srv.URL, Prefix: "events", Index: "analytics"})
	require.NoError(t, err)

	docs, err := client.SearchAnalytics(context.Background(), map[string]interface{}{
		"query": map[string]interface{}{"match": map[string]interface{}{"organizer_username": "alice"}},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Gala", docs[0]["event_title"])
	assert.Equal(t, "/events-analytics/_search", (*requests)[0].path)
}
