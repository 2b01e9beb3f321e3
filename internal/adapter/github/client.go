package github

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"eth_history_api/internal/adapter/upstream"
	"eth_history_api/internal/domain"
)

const (
	SourceName = domain.SourceGitHubEips

	eipsContentsPath = "/repos/ethereum/EIPs/contents/EIPS"
	userAgent        = "eth-history-api"
)

type Client struct {
	fetcher *upstream.Fetcher
	events  *upstream.Fetcher
	apiURL  string
}

type content struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Type        string  `json:"type"`
	HTMLURL     string  `json:"html_url"`
	DownloadURL *string `json:"download_url"`
}

// NewClient talks to the GitHub REST API at apiURL. token is optional and
// only raises the rate limit.
func NewClient(apiURL, token string, timeout time.Duration, maxRetries int, backoff time.Duration) *Client {
	h := http.Header{}
	h.Set("Accept", "application/vnd.github+json")
	h.Set("User-Agent", userAgent)
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return &Client{
		fetcher: upstream.NewFetcher(SourceName, timeout, maxRetries, backoff, h),
		events:  upstream.NewFetcher(domain.SourceGitHubEvents, timeout, maxRetries, backoff, h),
		apiURL:  strings.TrimRight(apiURL, "/"),
	}
}

// FetchEips lists the EIPS directory of ethereum/EIPs. Only the file names are
// read, so records carry the number, a generated title and the canonical URL.
func (c *Client) FetchEips(ctx context.Context) ([]domain.Eip, error) {
	zap.L().Info("fetching EIPs from GitHub")

	var contents []content
	if err := c.fetcher.GetJSON(ctx, c.apiURL+eipsContentsPath, &contents); err != nil {
		return nil, err
	}

	eips := make([]domain.Eip, 0, len(contents))
	for _, ct := range contents {
		n, ok := ParseEipNumber(ct.Name)
		if !ok {
			continue
		}
		eips = append(eips, domain.NewEip(n))
	}
	slices.SortFunc(eips, func(a, b domain.Eip) int { return cmp.Compare(a.Number, b.Number) })

	zap.L().Info("fetched EIPs", zap.Int("count", len(eips)))
	return eips, nil
}

// ParseEipNumber turns "eip-1559.md" into 1559.
func ParseEipNumber(filename string) (uint32, bool) {
	s, ok := strings.CutPrefix(filename, "eip-")
	if !ok {
		return 0, false
	}
	s, ok = strings.CutSuffix(s, ".md")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint32(n), true
}
