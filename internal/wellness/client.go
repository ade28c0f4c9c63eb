// Package wellness fetches the daily quote and random fact shown next to the
// task list. Upstream failures surface as a fixed Unavailable error.
package wellness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"taskwell/internal/apperrors"
)

// maxBody caps how much of an upstream response is read.
const maxBody = 64 << 10

// Quote is a quotation and its author.
type Quote struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

// Fact is a single trivia fact.
type Fact struct {
	Fact string `json:"fact"`
}

// Config configures a Client.
type Config struct {
	QuoteURL   string
	FactURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the quote and fact upstreams.
type Client struct {
	quoteURL string
	factURL  string
	timeout  time.Duration
	http     *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{quoteURL: cfg.QuoteURL, factURL: cfg.FactURL, timeout: cfg.Timeout, http: cfg.HTTPClient}
}

// Quote returns today's quote.
func (c *Client) Quote(ctx context.Context) (Quote, error) {
	var payload []struct {
		Q string `json:"q"`
		A string `json:"a"`
	}
	err := c.fetch(ctx, "wellness.quote", c.quoteURL, &payload)
	if err == nil && (len(payload) == 0 || strings.TrimSpace(payload[0].Q) == "") {
		err = errors.New("empty quote")
	}
	if err != nil {
		log.Printf("[warn] quote api failed: %v", err)
		return Quote{}, apperrors.Wrap(apperrors.KindUnavailable, apperrors.CodeUpstreamFailed, "Could not fetch quote", err)
	}
	return Quote{Quote: payload[0].Q, Author: payload[0].A}, nil
}

// Fact returns a random fact.
func (c *Client) Fact(ctx context.Context) (Fact, error) {
	var payload struct {
		Text string `json:"text"`
	}
	err := c.fetch(ctx, "wellness.fact", c.factURL, &payload)
	if err == nil && strings.TrimSpace(payload.Text) == "" {
		err = errors.New("empty fact")
	}
	if err != nil {
		log.Printf("[warn] fact api failed: %v", err)
		return Fact{}, apperrors.Wrap(apperrors.KindUnavailable, apperrors.CodeUpstreamFailed, "Could not fetch fact", err)
	}
	return Fact{Fact: payload.Text}, nil
}

func (c *Client) fetch(ctx context.Context, spanName, url string, out any) (err error) {
	ctx, span := otel.Tracer("taskwell/wellness").Start(ctx, spanName)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
