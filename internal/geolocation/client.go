// Package geolocation определяет примерное местоположение клиента по IP-адресу.
//
// Результаты кешируются в Redis. Частные и loopback-адреса не запрашиваются.
package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/magabrotheeeer/membership-service/internal/cache"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

// ErrNotRoutable возвращается для адресов, которые нельзя геолоцировать.
var ErrNotRoutable = errors.New("ip address is not publicly routable")

// Cache описывает методы кеша, нужные клиенту.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Client запрашивает ipapi-совместимый сервис.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	ttl        time.Duration
	log        *slog.Logger
}

// NewClient создаёт клиент. cache может быть nil.
func NewClient(baseURL string, timeout time.Duration, c Cache, ttl time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		ttl:        ttl,
		log:        log,
	}
}

type apiResponse struct {
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

// Lookup возвращает местоположение IP-адреса.
func (c *Client) Lookup(ctx context.Context, ip string) (*models.Location, error) {
	const op = "geolocation.Lookup"

	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return nil, fmt.Errorf("%s: %w", op, ErrNotRoutable)
	}

	key := cache.GeoKey(ip)
	if c.cache != nil {
		var loc models.Location
		found, err := c.cache.Get(ctx, key, &loc)
		if err != nil {
			c.log.Warn("geolocation cache read failed", sl.Err(err))
		}
		if found {
			return &loc, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+ip+"/json/", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if body.Error {
		return nil, fmt.Errorf("%s: %s", op, body.Reason)
	}

	loc := &models.Location{
		City:      body.City,
		Region:    body.Region,
		Country:   body.CountryName,
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, loc, c.ttl); err != nil {
			c.log.Warn("geolocation cache write failed", sl.Err(err))
		}
	}
	return loc, nil
}
