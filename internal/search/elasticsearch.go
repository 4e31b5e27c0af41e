package search

import (
	"bytes"
	"context"
	"encoding/json"

	"example.com/alumni/services/events/config"
	"example.com/alumni/services/events/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient projects analytics rows into Elasticsearch for reporting
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{client: client, config: cfg}, nil
}

// IndexAnalytics indexes one analytics row, keyed by its event ID so re-indexing overwrites
func (c *ElasticClient) IndexAnalytics(ctx context.Context, a *models.EventAnalytics) error {
	doc := map[string]interface{}{
		"event_id":            a.EventID.String(),
		"event_title":         a.EventTitle,
		"organizer_username":  a.OrganizerUsername,
		"total_invitations":   a.TotalInvitations,
		"confirmed_attendees": a.ConfirmedAttendees,
		"maybe_attendees":     a.MaybeAttendees,
		"declined_attendees":  a.DeclinedAttendees,
		"total_comments":      a.TotalComments,
		"total_media_uploads": a.TotalMediaUploads,
		"total_reminders":     a.TotalReminders,
		"attendance_rate":     a.AttendanceRateValue(),
		"engagement_rate":     a.EngagementRateValue(),
		"is_completed":        a.IsCompleted,
		"event_start_date":    a.EventStartDate,
		"event_end_date":      a.EventEndDate,
		"updated_at":          a.UpdatedAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal analytics document")
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(c.config, c.config.Index),
		DocumentID: a.EventID.String(),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Debug().Str("event_id", a.EventID.String()).Msg("analytics indexed")
	return nil
}

// SearchAnalytics runs a raw query against the analytics index and returns the matching sources
func (c *ElasticClient) SearchAnalytics(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{config.FormatIndex(c.config, c.config.Index)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	docs := make([]map[string]interface{}, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
