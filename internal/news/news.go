// Package news searches recycling news through the Naver search API.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/greencoach/greencoach-service/internal/cache"
	"github.com/greencoach/greencoach-service/internal/config"
	"github.com/greencoach/greencoach-service/internal/logging"
)

// DefaultQuery is used when the caller gives no query
const DefaultQuery = "분리배출"

var (
	// ErrNotConfigured is returned when Naver credentials are missing
	ErrNotConfigured = errors.New("naver search credentials not configured")

	// ErrUpstream wraps failures of the news search call
	ErrUpstream = errors.New("naver search upstream error")
)

// Article is one news card
type Article struct {
	Title   string `json:"title"`
	Press   string `json:"press"`
	TimeAgo string `json:"timeAgo"`
	Image   string `json:"image"`
	Link    string `json:"link"`
}

type newsResponse struct {
	Items []newsItem `json:"items"`
}

type newsItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

type imageResponse struct {
	Items []struct {
		Link      string `json:"link"`
		Thumbnail string `json:"thumbnail"`
	} `json:"items"`
}

// Client calls the Naver news and image search endpoints
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	display      int
	httpClient   *http.Client
	cache        cache.Cache
	cacheTTL     time.Duration
	now          func() time.Time
}

// NewClient creates a client. A nil cache disables caching.
func NewClient(cfg config.NewsConfig, c cache.Cache, cacheTTL time.Duration) *Client {
	if c == nil {
		c = cache.Noop{}
	}
	display := cfg.Display
	if display <= 0 {
		display = 5
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		display:      display,
		httpClient:   &http.Client{Timeout: cfg.ClientTimeout},
		cache:        c,
		cacheTTL:     cacheTTL,
		now:          time.Now,
	}
}

// Configured reports whether credentials are present
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// Search returns news articles for query, each with a thumbnail from an
// image search on its title. Thumbnail failures leave Image empty.
func (c *Client) Search(ctx context.Context, query string) ([]Article, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultQuery
	}

	logger := logging.FromStdContext(ctx)
	key := "news:" + strconv.Itoa(c.display) + ":" + query

	var cached []Article
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("news cache read failed", zap.String("key", key), zap.Error(err))
	}

	var resp newsResponse
	params := url.Values{"query": {query}, "display": {strconv.Itoa(c.display)}}
	if err := c.get(ctx, "/v1/search/news.json", params, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	articles := make([]Article, 0, len(resp.Items))
	for _, item := range resp.Items {
		title := cleanTitle(item.Title)
		image, err := c.thumbnail(ctx, title)
		if err != nil {
			logger.Debug("news thumbnail lookup failed", zap.String("title", title), zap.Error(err))
		}
		articles = append(articles, Article{
			Title:   title,
			Press:   pressName(item.OriginalLink),
			TimeAgo: timeAgo(item.PubDate, c.now()),
			Image:   image,
			Link:    item.OriginalLink,
		})
	}

	if err := c.cache.Set(ctx, key, articles, c.cacheTTL); err != nil {
		logger.Warn("news cache write failed", zap.String("key", key), zap.Error(err))
	}
	return articles, nil
}

func (c *Client) thumbnail(ctx context.Context, title string) (string, error) {
	var resp imageResponse
	params := url.Values{"query": {title}, "display": {"1"}}
	if err := c.get(ctx, "/v1/search/image.json", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", nil
	}
	return resp.Items[0].Thumbnail, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: decode: %w", path, err)
	}
	return nil
}

var boldTags = strings.NewReplacer("<b>", "", "</b>", "")

// cleanTitle drops the search highlight tags and unescapes entities
func cleanTitle(title string) string {
	return html.UnescapeString(boldTags.Replace(title))
}

// pressName is the article host without a leading www.
func pressName(link string) string {
	host := link
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return strings.TrimPrefix(host, "www.")
}

// timeAgo renders pubDate relative to now. An unparseable date counts as now.
func timeAgo(pubDate string, now time.Time) string {
	then, err := time.Parse(time.RFC1123Z, pubDate)
	if err != nil {
		then = now
	}
	diff := int64(now.Sub(then) / time.Second)
	switch {
	case diff < 60:
		return strconv.FormatInt(diff, 10) + "s ago"
	case diff < 3600:
		return strconv.FormatInt(diff/60, 10) + "m ago"
	default:
		return strconv.FormatInt(diff/3600, 10) + "h ago"
	}
}
