// Package linkmeta fetches a page and extracts a human readable title for it.
package linkmeta

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

var ErrNoTitle = errors.New("page has no title")

type Resolver struct {
	timeout time.Duration
	logger  *log.Logger
}

func NewResolver(timeout time.Duration, logger *log.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{timeout: timeout, logger: logger}
}

// ResolveTitle prefers og:title over <title> and falls back to the first h1.
func (r *Resolver) ResolveTitle(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.New("linkmeta: unsupported url")
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	c := colly.NewCollector(colly.UserAgent("skill-registry/linkmeta"))
	c.SetRequestTimeout(r.timeout)

	var ogTitle, title, heading string
	var reqErr error

	c.OnRequest(func(req *colly.Request) {
		if ctx.Err() != nil {
			req.Abort()
		}
	})

	c.OnHTML(`meta[property="og:title"]`, func(e *colly.HTMLElement) {
		if ogTitle == "" {
			ogTitle = cleanTitle(e.Attr("content"))
		}
	})

	c.OnHTML("title", func(e *colly.HTMLElement) {
		if title == "" {
			title = cleanTitle(e.Text)
		}
	})

	c.OnHTML("h1", func(e *colly.HTMLElement) {
		if heading == "" {
			heading = cleanTitle(e.Text)
		}
	})

	c.OnError(func(resp *colly.Response, err error) {
		reqErr = err
		if r.logger != nil {
			r.logger.Printf("[LinkMeta] Fetch error url=%s status=%d err=%v", rawURL, resp.StatusCode, err)
		}
	})

	if err := c.Visit(u.String()); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	c.Wait()

	if reqErr != nil {
		return "", reqErr
	}
	for _, t := range []string{ogTitle, title, heading} {
		if t != "" {
			return t, nil
		}
	}
	return "", ErrNoTitle
}

func cleanTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
