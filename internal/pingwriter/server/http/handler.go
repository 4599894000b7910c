package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/service"
	"github.com/autopeer-io/drivertrack/pkg/log"
)

type handler struct {
	svc     *service.Service
	ready   ReadinessFunc
	maxBody int64
}

// createPing handles POST /v1/drivers/ping.
func (h *handler) createPing(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, msgInvalidBody, model.FieldError{
				Code:    model.CodeTooBig,
				Message: "Request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
			})
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidBody, model.FieldError{Code: model.CodeInvalidJSON, Message: err.Error()})
		return
	}

	ping, details := model.DecodePing(body)
	if len(details) > 0 {
		writeError(w, http.StatusBadRequest, msgInvalidBody, details...)
		return
	}

	err = h.svc.Ingest(r.Context(), service.SourceHTTP, ping)
	var verr *core.ValidationError
	switch {
	case err == nil:
		w.WriteHeader(http.StatusCreated)
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, msgInvalidBody, verr.Details...)
	default:
		log.Error(err, "Failed to ingest ping", "driverId", ping.DriverID)
		writeInternal(w)
	}
}

type listPingsResponse struct {
	DriverID string              `json:"driverId"`
	Count    int                 `json:"count"`
	Pings    []*model.PingRecord `json:"pings"`
}

// listPings handles GET /v1/drivers/{driverId}/pings?from=&to=&limit=.
func (h *handler) listPings(w http.ResponseWriter, r *http.Request) {
	query, details := parsePingQuery(mux.Vars(r)["driverId"], r)
	if len(details) > 0 {
		writeError(w, http.StatusBadRequest, msgInvalidQuery, details...)
		return
	}

	records, err := h.svc.Pings(r.Context(), query)
	var verr *core.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, listPingsResponse{DriverID: query.DriverID, Count: len(records), Pings: records})
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, msgInvalidQuery, verr.Details...)
	default:
		log.Error(err, "Failed to query pings", "driverId", query.DriverID)
		writeInternal(w)
	}
}

func parsePingQuery(driverID string, r *http.Request) (*model.PingQuery, []model.FieldError) {
	q := &model.PingQuery{DriverID: driverID}
	values := r.URL.Query()

	var details []model.FieldError
	parse := func(key string) int64 {
		raw := values.Get(key)
		if raw == "" {
			return 0
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			details = append(details, model.FieldError{
				Code:    model.CodeInvalidType,
				Path:    []string{key},
				Message: "Expected a non-negative integer",
			})
			return 0
		}
		return n
	}

	if from := parse("from"); from > 0 {
		q.From = time.Unix(from, 0).UTC()
	}
	if to := parse("to"); to > 0 {
		q.To = time.Unix(to, 0).UTC()
	}
	q.Limit = parse("limit")

	return q, details
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// health handles GET /health.
func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now().UnixMilli()})
}

func (h *handler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
