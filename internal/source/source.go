// Package source reads the bundled events document that seeds an empty store.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"example.com/golocalevents/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrEmpty is returned when the document decodes to zero events.
var ErrEmpty = errors.New("no events data available")

// Source yields the seed collection.
type Source interface {
	Fetch(ctx context.Context) ([]domain.Event, error)
}

// New picks an HTTP source for http(s) locations and a file source otherwise.
func New(location string, client *http.Client) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if client == nil {
			client = NewHTTPClient(10 * time.Second)
		}
		return &HTTPSource{URL: location, Client: client}
	}
	return &FileSource{Path: location}
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]domain.Event, error) {
	body, err := GetDocument(ctx, s.Client, s.URL)
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(ctx context.Context) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return Decode(body)
}

// GetDocument performs a GET and returns the body of a 2xx response.
func GetDocument(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

type envelope struct {
	Events []domain.Event `json:"events"`
}

// Decode accepts either {"events": [...]} or a bare array.
func Decode(body []byte) ([]domain.Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}

	var events []domain.Event
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("malformed events array: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("malformed events document: %w", err)
		}
		events = env.Events
	default:
		return nil, errors.New("malformed events document: expected object or array")
	}

	if len(events) == 0 {
		return nil, ErrEmpty
	}
	return events, nil
}
