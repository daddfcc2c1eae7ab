package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
	"github.com/niksmo/fakestore/pkg/retry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrMalformedPayload = errors.New("malformed payload")
)

var _ port.CatalogFetcher = (*Client)(nil)

type Config struct {
	URL         string
	Timeout     time.Duration
	MaxAttempts int
}

type productDTO struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	} `json:"rating"`
}

func (dto productDTO) toDomain() domain.Product {
	return domain.Product{
		ID:          dto.ID,
		Title:       dto.Title,
		Price:       dto.Price,
		Category:    dto.Category,
		Image:       dto.Image,
		Description: dto.Description,
		Rating: domain.ProductRating{
			Rate:  dto.Rating.Rate,
			Count: dto.Rating.Count,
		},
	}
}

// A Client fetches the product list from the catalog REST API.
type Client struct {
	url        string
	httpClient *http.Client
	retryCfg   retry.RetryConfig
}

func New(cfg Config) *Client {
	return &Client{
		url: cfg.URL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
		retryCfg: retry.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			ShouldRetry: shouldRetry,
		},
	}
}

// FetchProducts returns the whole catalog in API order.
//
// Transport errors and 5xx responses are retried while attempts remain.
func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "Client.FetchProducts"

	ps, err := retry.DoWithResult(ctx, c.retryCfg, func() ([]domain.Product, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (c *Client) fetch(ctx context.Context) ([]domain.Product, error) {
	const op = "Client.fetch"
	log := slog.With("op", op)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		log.Warn("catalog responded", "status", res.StatusCode)
		return nil, &statusError{code: res.StatusCode}
	}

	var dtos []productDTO
	if err := json.NewDecoder(res.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMalformedPayload, err)
	}

	ps := make([]domain.Product, 0, len(dtos))
	for _, dto := range dtos {
		if dto.Price.IsNegative() {
			return nil, fmt.Errorf(
				"%s: %w: product %d has negative price",
				op, ErrMalformedPayload, dto.ID,
			)
		}
		ps = append(ps, dto.toDomain())
	}
	return ps, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d %s",
		ErrUnexpectedStatus, e.code, http.StatusText(e.code))
}

func (e *statusError) Unwrap() error {
	return ErrUnexpectedStatus
}

func shouldRetry(err error) bool {
	if errors.Is(err, ErrMalformedPayload) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError
	}
	return true
}
