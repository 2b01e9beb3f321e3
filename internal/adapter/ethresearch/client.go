package ethresearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eth_history_api/internal/adapter/upstream"
	"eth_history_api/internal/domain"
)

const (
	SourceName = domain.SourceEthResearch

	// topics at or below this many likes are not timeline material
	minLikes         = 50
	significantLikes = 100
	majorLikes       = 200
)

// ImportantCategories are the Discourse categories worth following.
var ImportantCategories = []string{
	"proof-of-stake",
	"data-availability",
	"sharding",
	"proposer-builder-separation",
	"verkle-trees",
	"mev",
}

type Client struct {
	fetcher *upstream.Fetcher
	baseURL string
}

type topicList struct {
	TopicList struct {
		Topics []domain.ResearchTopic `json:"topics"`
	} `json:"topic_list"`
}

func NewClient(baseURL string, timeout time.Duration, maxRetries int, backoff time.Duration) *Client {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", "eth-history-api")
	return &Client{
		fetcher: upstream.NewFetcher(SourceName, timeout, maxRetries, backoff, h),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchTopTopics returns at most limit topics from the forum's top list.
func (c *Client) FetchTopTopics(ctx context.Context, limit int) ([]domain.ResearchTopic, error) {
	topics, err := c.fetchList(ctx, c.baseURL+"/top.json")
	if err != nil {
		return nil, err
	}
	if limit >= 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}

func (c *Client) FetchCategory(ctx context.Context, slug string) ([]domain.ResearchTopic, error) {
	return c.fetchList(ctx, fmt.Sprintf("%s/c/%s.json", c.baseURL, url.PathEscape(slug)))
}

func (c *Client) fetchList(ctx context.Context, u string) ([]domain.ResearchTopic, error) {
	var out topicList
	if err := c.fetcher.GetJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.TopicList.Topics, nil
}

// TopicsToEvents keeps topics with more than 50 likes and grades them by
// popularity.
func (c *Client) TopicsToEvents(topics []domain.ResearchTopic) []domain.TimelineEvent {
	events := make([]domain.TimelineEvent, 0, len(topics))
	for _, t := range topics {
		if t.LikeCount <= minLikes {
			continue
		}
		date, _, _ := strings.Cut(t.CreatedAt, "T")
		events = append(events, domain.TimelineEvent{
			ID:         fmt.Sprintf("ethresearch-%d", t.ID),
			Type:       domain.EventResearch,
			Date:       date,
			Title:      t.Title,
			Summary:    fmt.Sprintf("%d views, %d likes", t.Views, t.LikeCount),
			Era:        domain.EraForDate(date),
			Importance: ImportanceFor(t.LikeCount),
			Sources: []domain.Source{{
				Title:      t.Title,
				URL:        fmt.Sprintf("%s/t/%s/%d", c.baseURL, t.Slug, t.ID),
				SourceType: SourceName,
			}},
			Tags: []string{"research"},
		})
	}
	return events
}

func ImportanceFor(likes uint32) domain.Importance {
	switch {
	case likes > majorLikes:
		return domain.ImportanceMajor
	case likes > significantLikes:
		return domain.ImportanceSignificant
	default:
		return domain.ImportanceMinor
	}
}
