package transporthttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/golocalevents/internal/config"
	"example.com/golocalevents/internal/domain"
	"example.com/golocalevents/internal/filter"
	"example.com/golocalevents/internal/imagery"
	"example.com/golocalevents/internal/ingest"
	"example.com/golocalevents/internal/metrics"
	"example.com/golocalevents/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBulkEvents caps a single bulk request; larger uploads must be split.
const maxBulkEvents = 100

type ServerDeps struct {
	Cfg      config.Config
	Store    *store.Store
	Ingestor *ingest.Ingestor
	Images   *imagery.Resolver
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
	Now      func() time.Time
}

// decodeJSONStrict reads the (size-limited) body and rejects unknown fields.
// A body over the limit yields *http.MaxBytesError.
func decodeJSONStrict(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeDecodeError(c *gin.Context, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		WriteProblem(c, http.StatusRequestEntityTooLarge, "payload too large",
			fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit), nil)
		return
	}
	WriteProblem(c, http.StatusBadRequest, "invalid json", err.Error(), nil)
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (d *ServerDeps) HandleReadyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := d.Store.Ready(ctx); err != nil {
		WriteProblem(c, http.StatusServiceUnavailable, "not ready", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// --- Events (read) ---

func (d *ServerDeps) HandleEventTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": domain.EventTypes})
}

// listResp.Total counts every match; Count is what was returned after limit.
type listResp struct {
	Loading bool           `json:"loading"`
	Error   *string        `json:"error"`
	Count   int            `json:"count"`
	Total   int            `json:"total"`
	Events  []domain.Event `json:"events"`
}

func (d *ServerDeps) HandleListEvents(c *gin.Context) {
	crit, err := filter.ParseCriteria(c.Query("q"), c.Query("type"), c.Query("location"), c.Query("startDate"))
	if err != nil {
		WriteProblem(c, http.StatusBadRequest, "invalid parameters", err.Error(), nil)
		return
	}
	limit, err := filter.ParseLimit(c.Query("limit"))
	if err != nil {
		WriteProblem(c, http.StatusBadRequest, "invalid parameters", err.Error(), nil)
		return
	}

	st := d.Store.State()
	matched := d.Store.Query(crit)
	resp := listResp{
		Loading: st.Loading,
		Total:   len(matched),
		Events:  d.withImages(filter.Limit(matched, limit)),
	}
	if st.Err != nil {
		msg := st.Err.Error()
		resp.Error = &msg
	}
	resp.Count = len(resp.Events)
	c.JSON(http.StatusOK, resp)
}

func (d *ServerDeps) HandleGetEvent(c *gin.Context) {
	if err := d.loaded(); err != nil {
		writeStoreError(c, err)
		return
	}
	ev, err := d.Store.GetByID(c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, d.Images.Apply(ev))
}

// loaded distinguishes "no such event" from "nothing loaded yet".
func (d *ServerDeps) loaded() error {
	st := d.Store.State()
	switch {
	case st.Err != nil:
		return fmt.Errorf("%w: %v", domain.ErrNotReady, st.Err)
	case st.Loading:
		return domain.ErrNotReady
	}
	return nil
}

func (d *ServerDeps) withImages(events []domain.Event) []domain.Event {
	for i := range events {
		events[i] = d.Images.Apply(events[i])
	}
	return events
}

// --- Events (write) ---

func (d *ServerDeps) HandleCreateEvent(c *gin.Context) {
	var draft domain.Draft
	if err := decodeJSONStrict(c.Request, &draft); err != nil {
		writeDecodeError(c, err)
		return
	}
	if errs := domain.CheckLimits(&draft); len(errs) > 0 {
		WriteProblem(c, http.StatusBadRequest, "validation failed", "one or more fields are invalid", fieldProblems("", errs))
		return
	}
	ev, err := d.Store.Create(c.Request.Context(), draft)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.Header("Location", "/events/"+strconv.Itoa(ev.ID))
	c.JSON(http.StatusCreated, d.Images.Apply(ev))
}

func (d *ServerDeps) HandleRsvp(c *gin.Context) {
	ev, err := d.Store.Rsvp(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, d.Images.Apply(ev))
}

type bulkReq struct {
	Events []domain.Draft `json:"events"`
}

func (d *ServerDeps) HandleBulkEvents(c *gin.Context) {
	if d.Ingestor == nil {
		WriteProblem(c, http.StatusServiceUnavailable, "unavailable", "bulk import is not running", nil)
		return
	}
	// a queued draft is only ever written by a loaded store
	if err := d.loaded(); err != nil {
		writeStoreError(c, err)
		return
	}
	var br bulkReq
	if err := decodeJSONStrict(c.Request, &br); err != nil {
		writeDecodeError(c, err)
		return
	}
	switch {
	case len(br.Events) == 0:
		WriteProblem(c, http.StatusBadRequest, "validation failed", "events must not be empty", nil)
		return
	case len(br.Events) > maxBulkEvents:
		WriteProblem(c, http.StatusBadRequest, "validation failed",
			fmt.Sprintf("at most %d events per request", maxBulkEvents), nil)
		return
	}

	prob := map[string][]string{}
	for i := range br.Events {
		errs := append(domain.ValidateDraft(&br.Events[i]), domain.CheckLimits(&br.Events[i])...)
		for k, v := range fieldProblems("events["+strconv.Itoa(i)+"].", errs) {
			prob[k] = v
		}
	}
	if len(prob) > 0 {
		WriteProblem(c, http.StatusBadRequest, "validation failed", "one or more events are invalid", prob)
		return
	}

	accepted := 0
	for _, draft := range br.Events {
		if !d.Ingestor.Enqueue(draft) {
			d.Metrics.ImportQueued(accepted)
			d.Metrics.ImportRejected()
			writeProblem(c, Problem{
				Title:  "overloaded",
				Status: http.StatusServiceUnavailable,
				Detail: "import queue is full, please retry",
				Meta:   map[string]any{"accepted_count": accepted},
			})
			return
		}
		accepted++
	}
	d.Metrics.ImportQueued(accepted)
	d.Log.Info("queued events for import", zap.Int("count", accepted), zap.String("request_id", GetRequestID(c)))

	c.JSON(http.StatusAccepted, gin.H{"accepted_count": accepted})
}

// --- Router ---

func (d *ServerDeps) Router() *gin.Engine {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Images == nil {
		d.Images = imagery.NewResolver(nil, nil)
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.NewRegistry()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(prometheus.NewRegistry())
	}

	r := gin.New()
	r.Use(RequestID(), AccessLog(d.Log), Recover(d.Log), Instrument(d.Metrics))

	r.GET("/healthz", d.HandleHealthz)
	r.GET("/readyz", d.HandleReadyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/event-types", d.HandleEventTypes)
	r.GET("/events", d.HandleListEvents)
	r.GET("/events/:id", d.HandleGetEvent)

	mut := r.Group("/events",
		APIKeyAuth(d.Cfg.APIKeys),
		RateLimitPerMinute(d.Cfg.RateLimitMutationsPerMin, d.Now),
		BodyLimit(d.Cfg.MaxBodyBytes),
	)
	mut.POST("", RequireJSON(), d.HandleCreateEvent)
	mut.POST("/bulk", RequireJSON(), d.HandleBulkEvents)
	mut.POST("/:id/rsvp", d.HandleRsvp)

	r.NoRoute(func(c *gin.Context) {
		WriteProblem(c, http.StatusNotFound, "not found", "no route for "+c.Request.URL.Path, nil)
	})
	return r
}
