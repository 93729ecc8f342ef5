// Package imagery picks a picture for events that do not carry one.
package imagery

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"example.com/golocalevents/internal/source"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultKeyword names the keyword pool used when nothing else matches.
const DefaultKeyword = "default"

// FallbackURL is returned when the catalog has no usable pool at all.
const FallbackURL = "https://images.unsplash.com/photo-1540575467063-178a50c2df87?w=800&h=400&fit=crop"

// Catalog maps event types and keywords to candidate image URLs.
type Catalog struct {
	EventTypes map[string][]string `json:"eventTypes"`
	Keywords   map[string][]string `json:"keywords"`
}

// LoadCatalog reads the catalog from an http(s) URL or a file path.
func LoadCatalog(ctx context.Context, location string, client *http.Client) (*Catalog, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if client == nil {
			client = http.DefaultClient
		}
		body, err = source.GetDocument(ctx, client, location)
	} else {
		body, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("load image catalog: %w", err)
	}
	return ParseCatalog(body)
}

func ParseCatalog(body []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("parse image catalog: %w", err)
	}
	return &c, nil
}
