// Package geocode предоставляет клиент сервиса обратного геокодирования.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoAddress возвращается, если сервис не смог сопоставить координаты адресу.
var ErrNoAddress = errors.New("no address for location")

// Client инкапсулирует HTTP-взаимодействие с Nominatim-совместимым сервисом.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Address содержит части адреса, найденного по координатам. Пустые поля допустимы.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

type reverseResponse struct {
	Address *struct {
		Road     string `json:"road"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		State    string `json:"state"`
		Postcode string `json:"postcode"`
	} `json:"address"`
	Error string `json:"error"`
}

// NewClient создаёт клиент геокодирования по указанному адресу.
func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Reverse запрашивает адрес для указанных координат.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Address, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("geocoder not configured")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinates out of range: %v,%v", lat, lon)
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if result.Address == nil {
		return nil, ErrNoAddress
	}

	a := result.Address
	city := a.City
	if city == "" {
		city = a.Town
	}
	if city == "" {
		city = a.Village
	}

	return &Address{
		Street:  a.Road,
		City:    city,
		State:   a.State,
		ZipCode: a.Postcode,
	}, nil
}
