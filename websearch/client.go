// Package websearch is the live web lookup used when nothing in the
// knowledge store answers a question.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"kurogo/knowledge"
)

const (
	DefaultEngine      = "google"
	DefaultBaseURL     = "https://www.google.com"
	DefaultTimeout     = 10 * time.Second
	DefaultNegativeTTL = 10 * time.Minute
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxBodyBytes = 2 << 20
	maxAnswerLen = 500
	minCutLen    = 300
)

var (
	ErrNetwork   = fmt.Errorf("websearch: %w", knowledge.ErrNetwork)
	ErrNoResults = errors.New("websearch: nothing relevant found")
)

var intros = []string{
	"According to the web: ",
	"I found this: ",
	"From my search: ",
	"Online sources say: ",
	"The web says: ",
}

// Answer is raw text scraped from a result page. Source is the engine name
// for a direct-answer snippet and the engine name plus "_search" for
// combined organic results.
type Answer struct {
	Text   string
	Source string
}

type Client struct {
	engine    string
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger

	misses *cache.Cache

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Client)

// WithEngine names the engine recorded in Answer.Source.
func WithEngine(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.engine = name
		}
	}
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithNegativeTTL sets how long a query that found nothing is answered
// from cache. Zero disables the cache.
func WithNegativeTTL(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.misses = nil
			return
		}
		c.misses = cache.New(d, 2*d)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRand(r *rand.Rand) Option {
	return func(c *Client) { c.rng = r }
}

func New(opts ...Option) *Client {
	c := &Client{
		engine:    DefaultEngine,
		baseURL:   DefaultBaseURL,
		http:      http.DefaultClient,
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		logger:    zap.NewNop(),
		misses:    cache.New(DefaultNegativeTTL, 2*DefaultNegativeTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x776562))
	}
	return c
}

// Search queries the engine for question. Transport failures, timeouts and
// error statuses wrap ErrNetwork; a page with no usable snippet or result
// returns ErrNoResults.
func (c *Client) Search(ctx context.Context, question string) (Answer, error) {
	terms := SearchTerms(question)
	if terms == "" {
		return Answer{}, ErrNoResults
	}
	if c.misses != nil {
		if _, found := c.misses.Get(terms); found {
			c.logger.Debug("web search skipped, recent miss", zap.String("terms", terms))
			return Answer{}, ErrNoResults
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	searchURL := c.baseURL + "/search?q=" + url.QueryEscape(terms)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("web search failed", zap.String("terms", terms), zap.Error(err))
		return Answer{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("web search bad status", zap.String("terms", terms), zap.Int("status", resp.StatusCode))
		return Answer{}, fmt.Errorf("%w: HTTP %d", ErrNetwork, resp.StatusCode)
	}

	text, combined, ok, err := extract(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Answer{}, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if !ok {
		if c.misses != nil {
			c.misses.Set(terms, struct{}{}, cache.DefaultExpiration)
		}
		c.logger.Debug("web search found nothing", zap.String("terms", terms))
		return Answer{}, ErrNoResults
	}
	source := c.engine
	if combined {
		source += "_search"
	}
	c.logger.Debug("web search hit", zap.String("terms", terms), zap.String("source", source))
	return Answer{Text: text, Source: source}, nil
}

// Format trims text to about 500 characters, preferring a sentence end
// past character 300, and prefixes an attribution.
func (c *Client) Format(text string) string {
	if utf8.RuneCountInString(text) > maxAnswerLen {
		head := string([]rune(text)[:maxAnswerLen])
		if cut := strings.LastIndex(head, "."); cut >= 0 && utf8.RuneCountInString(head[:cut]) > minCutLen {
			text = head[:cut+1]
		} else {
			text = head + "..."
		}
	}
	c.rngMu.Lock()
	intro := intros[c.rng.IntN(len(intros))]
	c.rngMu.Unlock()
	return intro + text
}
