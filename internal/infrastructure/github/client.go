package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const reposPerPage = 5

var ErrNotFound = errors.New("github profile not found")

type Repository struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	HTMLURL     string    `json:"html_url"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	Watchers    int       `json:"watchers_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type Client interface {
	ListRepositories(ctx context.Context, username string) ([]Repository, error)
}

type httpClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
	logger       *log.Logger
}

func NewClient(baseURL, clientID, clientSecret string, logger *log.Logger) Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &httpClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     strings.TrimSpace(clientID),
		clientSecret: strings.TrimSpace(clientSecret),
		client:       &http.Client{Timeout: 5 * time.Second},
		logger:       logger,
	}
}

// ListRepositories returns the oldest public repositories of username.
// Any non-200 answer is reported as ErrNotFound.
func (c *httpClient) ListRepositories(ctx context.Context, username string) ([]Repository, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("nil github client")
	}

	q := url.Values{}
	q.Set("per_page", fmt.Sprint(reposPerPage))
	q.Set("sort", "created")
	q.Set("direction", "asc")
	endpoint := c.baseURL + "/users/" + url.PathEscape(username) + "/repos?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "skill-registry")
	if c.clientID != "" && c.clientSecret != "" {
		req.SetBasicAuth(c.clientID, c.clientSecret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if c.logger != nil {
			c.logger.Printf("[Github] ListRepositories error user=%s status=%d body=%q", username, resp.StatusCode, strings.TrimSpace(string(rb)))
		}
		return nil, fmt.Errorf("%w: status=%d", ErrNotFound, resp.StatusCode)
	}

	var out []Repository
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Repository{}
	}
	return out, nil
}

var _ Client = (*httpClient)(nil)
