package imagery

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/golocalevents/internal/domain"
)

const catalogDoc = `{
  "eventTypes": {
    "Music": ["https://img/music-1.jpg", "https://img/music-2.jpg"],
    "Sports": ["https://img/sports.jpg"],
    "Empty": []
  },
  "keywords": {
    "yoga": ["https://img/yoga.jpg"],
    "book": ["https://img/book.jpg"],
    "default": ["https://img/default.jpg"]
  }
}`

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	c, err := ParseCatalog([]byte(catalogDoc))
	require.NoError(t, err)
	return NewResolver(c, rand.New(rand.NewPCG(1, 2)))
}

func TestResolve(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		ev   domain.Event
		want []string
	}{
		{"explicit imageUrl wins", domain.Event{ImageURL: "https://mine.jpg", Type: "Music"}, []string{"https://mine.jpg"}},
		{"legacy image field", domain.Event{Image: "https://legacy.jpg"}, []string{"https://legacy.jpg"}},
		{"type pool", domain.Event{Type: "Music", Title: "Yoga"}, []string{"https://img/music-1.jpg", "https://img/music-2.jpg"}},
		{"type pool case-insensitive", domain.Event{Type: "sports"}, []string{"https://img/sports.jpg"}},
		{"empty type pool falls to keyword", domain.Event{Type: "Empty", Description: "Sunrise YOGA"}, []string{"https://img/yoga.jpg"}},
		{"keyword in title", domain.Event{Type: "Meetup", Title: "Book Club"}, []string{"https://img/book.jpg"}},
		{"default pool", domain.Event{Type: "Other", Title: "Mystery"}, []string{"https://img/default.jpg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				assert.Contains(t, tt.want, r.Resolve(tt.ev))
			}
		})
	}
}

func TestResolve_CaseCollidingTypesAreDeterministic(t *testing.T) {
	c := &Catalog{EventTypes: map[string][]string{
		"music": {"https://img/lower.jpg"},
		"Music": {"https://img/title.jpg"},
		"MUSIC": {"https://img/upper.jpg"},
		"Yoga":  {},
		"YOGA":  {"https://img/yoga.jpg"},
	}}
	for i := 0; i < 50; i++ {
		r := NewResolver(c, nil)
		assert.Equal(t, "https://img/upper.jpg", r.Resolve(domain.Event{Type: "mUsic"}))
		assert.Equal(t, "https://img/title.jpg", r.Resolve(domain.Event{Type: "Music"}), "exact key first")
		assert.Equal(t, "https://img/yoga.jpg", r.Resolve(domain.Event{Type: "Yoga"}), "empty exact pool falls back to folded key")
	}
}

func TestResolve_PicksAcrossPool(t *testing.T) {
	r := newTestResolver(t)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[r.Resolve(domain.Event{Type: "Music"})] = true
	}
	assert.Len(t, seen, 2)
}

func TestResolve_NeverEmpty(t *testing.T) {
	r := NewResolver(nil, nil)
	assert.Equal(t, FallbackURL, r.Resolve(domain.Event{Title: "Anything"}))

	r = NewResolver(&Catalog{Keywords: map[string][]string{"default": {" "}}}, nil)
	assert.Equal(t, FallbackURL, r.Resolve(domain.Event{}))
}

func TestApply(t *testing.T) {
	r := newTestResolver(t)
	ev := r.Apply(domain.Event{ID: 1, Type: "Sports"})
	assert.Equal(t, "https://img/sports.jpg", ev.ImageURL)
}

func TestLoadCatalog(t *testing.T) {
	p := filepath.Join(t.TempDir(), "images.json")
	require.NoError(t, os.WriteFile(p, []byte(catalogDoc), 0o644))

	c, err := LoadCatalog(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Len(t, c.EventTypes["Music"], 2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(catalogDoc))
	}))
	defer srv.Close()

	c, err = LoadCatalog(context.Background(), srv.URL+"/images.json", srv.Client())
	require.NoError(t, err)
	assert.Len(t, c.Keywords, 3)

	_, err = LoadCatalog(context.Background(), srv.URL+"/nope.json", srv.Client())
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`{"eventTypes":`))
	assert.Error(t, err)
}
