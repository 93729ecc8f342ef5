package imagery

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"example.com/golocalevents/internal/domain"
)

// Resolver is stateless apart from its random source, which is guarded so a
// single Resolver can serve concurrent requests.
type Resolver struct {
	catalog     *Catalog
	keywords    []string
	typesFolded map[string][]string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewResolver accepts a nil catalog; rnd nil means a randomly seeded source.
func NewResolver(c *Catalog, rnd *rand.Rand) *Resolver {
	if c == nil {
		c = &Catalog{}
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	kws := make([]string, 0, len(c.Keywords))
	for k := range c.Keywords {
		if k != DefaultKeyword && k != "" {
			kws = append(kws, k)
		}
	}
	sort.Strings(kws)

	// keys differing only in case: the lexically smallest key with a usable pool wins
	types := make([]string, 0, len(c.EventTypes))
	for k := range c.EventTypes {
		types = append(types, k)
	}
	sort.Strings(types)
	folded := make(map[string][]string, len(types))
	for _, k := range types {
		lk := strings.ToLower(k)
		if _, ok := folded[lk]; ok {
			continue
		}
		if pool := nonEmpty(c.EventTypes[k]); len(pool) > 0 {
			folded[lk] = pool
		}
	}
	return &Resolver{catalog: c, keywords: kws, typesFolded: folded, rnd: rnd}
}

// Resolve always returns a non-empty URL.
func (r *Resolver) Resolve(ev domain.Event) string {
	if ev.ImageURL != "" {
		return ev.ImageURL
	}
	if ev.Image != "" {
		return ev.Image
	}
	if pool := r.typePool(ev.Type); len(pool) > 0 {
		return r.pick(pool)
	}
	if pool := r.keywordPool(ev.Title + " " + ev.Description); len(pool) > 0 {
		return r.pick(pool)
	}
	if pool := nonEmpty(r.catalog.Keywords[DefaultKeyword]); len(pool) > 0 {
		return r.pick(pool)
	}
	return FallbackURL
}

// Apply returns ev with ImageURL filled in.
func (r *Resolver) Apply(ev domain.Event) domain.Event {
	ev.ImageURL = r.Resolve(ev)
	return ev
}

func (r *Resolver) typePool(typ string) []string {
	if typ == "" {
		return nil
	}
	if pool := nonEmpty(r.catalog.EventTypes[typ]); len(pool) > 0 {
		return pool
	}
	return nonEmpty(r.typesFolded[strings.ToLower(typ)])
}

func (r *Resolver) keywordPool(text string) []string {
	text = strings.ToLower(text)
	for _, kw := range r.keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			if pool := nonEmpty(r.catalog.Keywords[kw]); len(pool) > 0 {
				return pool
			}
		}
	}
	return nil
}

func (r *Resolver) pick(pool []string) string {
	r.mu.Lock()
	i := r.rnd.IntN(len(pool))
	r.mu.Unlock()
	return pool[i]
}

func nonEmpty(urls []string) []string {
	out := urls[:0:0]
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			out = append(out, u)
		}
	}
	return out
}
