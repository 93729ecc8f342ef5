package transporthttp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/golocalevents/internal/domain"
)

const problemContentType = "application/problem+json"

type Problem struct {
	Type     string              `json:"type,omitempty"`
	Title    string              `json:"title,omitempty"`
	Status   int                 `json:"status,omitempty"`
	Detail   string              `json:"detail,omitempty"`
	Instance string              `json:"instance,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Meta     map[string]any      `json:"meta,omitempty"`
}

// WriteProblem writes an RFC 7807 body and aborts the chain.
func WriteProblem(c *gin.Context, status int, title, detail string, errs map[string][]string) {
	writeProblem(c, Problem{Title: title, Status: status, Detail: detail, Errors: errs})
}

func writeProblem(c *gin.Context, p Problem) {
	if p.Instance == "" {
		p.Instance = c.Request.URL.Path
	}
	body, err := json.Marshal(p)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(p.Status, problemContentType, body)
	c.Abort()
}

// writeStoreError maps the store's error taxonomy onto HTTP statuses.
func writeStoreError(c *gin.Context, err error) {
	var (
		verr *domain.ValidationError
		perr *domain.PersistError
	)
	switch {
	case errors.As(err, &verr):
		WriteProblem(c, http.StatusBadRequest, "validation failed", "one or more fields are invalid", fieldProblems("", verr.Fields))
	case errors.Is(err, domain.ErrInvalidEventID):
		WriteProblem(c, http.StatusBadRequest, "invalid event id", err.Error(), nil)
	case errors.Is(err, domain.ErrEventNotFound):
		WriteProblem(c, http.StatusNotFound, "not found", err.Error(), nil)
	case errors.Is(err, domain.ErrIDSpaceExhausted):
		WriteProblem(c, http.StatusConflict, "id space exhausted", err.Error(), nil)
	case errors.Is(err, domain.ErrNotReady):
		WriteProblem(c, http.StatusServiceUnavailable, "not ready", err.Error(), nil)
	case errors.As(err, &perr):
		_ = c.Error(err)
		WriteProblem(c, http.StatusInternalServerError, "storage error", "the change could not be saved and was not applied", nil)
	default:
		_ = c.Error(err)
		WriteProblem(c, http.StatusInternalServerError, "internal error", "unexpected error", nil)
	}
}

func fieldProblems(prefix string, fields []domain.FieldError) map[string][]string {
	prob := map[string][]string{}
	for _, fe := range fields {
		prob[prefix+fe.Field] = append(prob[prefix+fe.Field], fe.Msg)
	}
	return prob
}
