package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/api/middleware"
	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/jobs"
	"github.com/dvloznov/imoveis-tracker/internal/money"
	"github.com/dvloznov/imoveis-tracker/internal/store"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Amount is a monetary value sent either as a JSON number or as text such as
// "R$ 1.234,56". Unparsable text reads as 0.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*a = Amount(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*a = 0
		return nil
	}
	*a = Amount(money.Parse(s))
	return nil
}

// statusFor maps engine and store errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownProperty), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNameInUse), errors.Is(err, engine.ErrNoActiveProperty):
		return http.StatusConflict
	case errors.Is(err, engine.ErrEmptyName), errors.Is(err, engine.ErrInvalidEstado),
		errors.Is(err, engine.ErrInvalidCotistas), errors.Is(err, engine.ErrInvalidOption),
		errors.Is(err, engine.ErrReadOnlyField), errors.Is(err, engine.ErrUnknownField):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// PropertiesHandler exposes one engine session over HTTP. Requests are
// serialized since a session is single-threaded.
type PropertiesHandler struct {
	mu    sync.Mutex
	sess  *engine.Session
	store store.EntryStore
	now   func() time.Time
	log   zerolog.Logger
}

// NewPropertiesHandler creates a new properties handler.
func NewPropertiesHandler(sess *engine.Session, st store.EntryStore, log zerolog.Logger) *PropertiesHandler {
	return &PropertiesHandler{
		sess:  sess,
		store: st,
		now:   time.Now,
		log:   log,
	}
}

// Register mounts the property and session endpoints on mux.
func (h *PropertiesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/properties", h.ListProperties)
	mux.HandleFunc("POST /api/properties", h.CreateProperty)
	mux.HandleFunc("DELETE /api/properties/{name}", h.DeleteProperty)
	mux.HandleFunc("POST /api/properties/{name}/rename", h.RenameProperty)
	mux.HandleFunc("POST /api/properties/{name}/duplicate", h.DuplicateProperty)
	mux.HandleFunc("PUT /api/properties/{name}/status", h.SetStatus)
	mux.HandleFunc("GET /api/properties/{name}/summary", h.GetSummary)
	mux.HandleFunc("POST /api/undo", h.Undo)
	mux.HandleFunc("GET /api/report", h.Report)

	mux.HandleFunc("GET /api/session", h.GetView)
	mux.HandleFunc("POST /api/session/select", h.Select)
	mux.HandleFunc("POST /api/session/scenario", h.SetScenario)
	mux.HandleFunc("PUT /api/session/fields/{field}", h.SetField)
	mux.HandleFunc("PUT /api/session/rates/{kind}", h.SetRate)
	mux.HandleFunc("PATCH /api/session/metadata", h.SetMetadata)
	mux.HandleFunc("POST /api/session/recompute", h.Recompute)
}

func (h *PropertiesHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		middleware.WriteError(w, status, msg)
		return
	}
	middleware.WriteError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeView answers with the view of the active property.
func (h *PropertiesHandler) writeView(w http.ResponseWriter, r *http.Request, status int) {
	view, err := h.sess.View(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to build view")
		return
	}
	middleware.WriteJSON(w, status, view)
}

// ListProperties handles GET /api/properties
func (h *PropertiesHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, err := h.sess.Properties(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to list properties")
		return
	}
	active, cenario := h.sess.Active()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"properties": list,
		"active":     active,
		"cenario":    cenario,
	})
}

// CreateProperty handles POST /api/properties
func (h *PropertiesHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name, err := h.sess.Create(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to create property")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"imovel": name})
}

// DeleteProperty handles DELETE /api/properties/{name}
func (h *PropertiesHandler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := r.PathValue("name")
	if err := h.sess.Delete(r.Context(), name); err != nil {
		h.fail(w, r, err, "Failed to delete property")
		return
	}
	pending, _ := h.sess.PendingUndo()
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"deleted":     name,
		"pendingUndo": pending,
	})
}

// RenameProperty handles POST /api/properties/{name}/rename
func (h *PropertiesHandler) RenameProperty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewName string `json:"newName"`
	}
	if !decode(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.sess.Rename(r.Context(), r.PathValue("name"), req.NewName); err != nil {
		h.fail(w, r, err, "Failed to rename property")
		return
	}
	active, _ := h.sess.Active()
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"active": active})
}

// DuplicateProperty handles POST /api/properties/{name}/duplicate
func (h *PropertiesHandler) DuplicateProperty(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name, err := h.sess.Duplicate(r.Context(), r.PathValue("name"))
	if err != nil {
		h.fail(w, r, err, "Failed to duplicate property")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"imovel": name})
}

// SetStatus handles PUT /api/properties/{name}/status. An empty body toggles.
func (h *PropertiesHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.StatusImovel `json:"status"`
	}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	name := r.PathValue("name")
	status := req.Status
	var err error
	switch status {
	case "":
		status, err = h.sess.ToggleStatus(r.Context(), name)
	case domain.EmAndamento, domain.Finalizado:
		err = h.sess.SetStatus(r.Context(), name, status)
	default:
		middleware.WriteError(w, http.StatusBadRequest, "Unknown status")
		return
	}
	if err != nil {
		h.fail(w, r, err, "Failed to set status")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"imovel": name, "status": string(status)})
}

// GetSummary handles GET /api/properties/{name}/summary?cenario=Executado
func (h *PropertiesHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	cenario := domain.Cenario(r.URL.Query().Get("cenario"))
	if cenario == "" {
		cenario = domain.Projetado
	}
	if cenario != domain.Projetado && cenario != domain.Executado {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown cenario")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	summary, meta, err := h.sess.SummaryOf(r.Context(), r.PathValue("name"), cenario)
	if err != nil {
		h.fail(w, r, err, "Failed to summarize property")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary":  summary,
		"metadata": meta,
	})
}

// Undo handles POST /api/undo
func (h *PropertiesHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	restored, err := h.sess.Undo(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to undo delete")
		return
	}
	active, _ := h.sess.Active()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"restored": restored,
		"active":   active,
	})
}

// Report handles GET /api/report
func (h *PropertiesHandler) Report(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListEntries(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to list entries")
		return
	}
	report := engine.Report(entries, h.now())
	if report == nil {
		report = []engine.PropertySummary{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"properties": report,
		"count":      len(report),
	})
}

// GetView handles GET /api/session
func (h *PropertiesHandler) GetView(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeView(w, r, http.StatusOK)
}

// Select handles POST /api/session/select
func (h *PropertiesHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Imovel string `json:"imovel"`
	}
	if !decode(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.sess.Select(r.Context(), req.Imovel); err != nil {
		h.fail(w, r, err, "Failed to select property")
		return
	}
	h.writeView(w, r, http.StatusOK)
}

// SetScenario handles POST /api/session/scenario
func (h *PropertiesHandler) SetScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cenario domain.Cenario `json:"cenario"`
	}
	if !decode(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.sess.SetScenario(req.Cenario); err != nil {
		h.fail(w, r, err, "Failed to set scenario")
		return
	}
	h.writeView(w, r, http.StatusOK)
}

// SetField handles PUT /api/session/fields/{field}. With "monthly": true the
// value is a monthly amount.
func (h *PropertiesHandler) SetField(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Valor   Amount `json:"valor"`
		Monthly bool   `json:"monthly"`
	}
	if !decode(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	field := r.PathValue("field")
	var err error
	if req.Monthly {
		err = h.sess.SetMonthlyValue(r.Context(), field, float64(req.Valor))
	} else {
		err = h.sess.SetValue(r.Context(), field, float64(req.Valor))
	}
	if err != nil {
		h.fail(w, r, err, "Failed to set field")
		return
	}
	h.writeView(w, r, http.StatusOK)
}

// SetRate handles PUT /api/session/rates/{kind}
func (h *PropertiesHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	kind, err := engine.ParseRateKind(r.PathValue("kind"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Percent float64 `json:"percent"`
	}
	if !decode(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.sess.SetRate(r.Context(), kind, req.Percent); err != nil {
		h.fail(w, r, err, "Failed to set rate")
		return
	}
	h.writeView(w, r, http.StatusOK)
}

// metadataRequest carries dates as YYYY-MM-DD.
type metadataRequest struct {
	Estado      *string            `json:"estado"`
	Cidade      *string            `json:"cidade"`
	TipoCompra  *domain.TipoCompra `json:"tipoCompra"`
	Vendido     *domain.Vendido    `json:"vendido"`
	NumCotistas *int               `json:"numCotistas"`
	DataCompra  *string            `json:"dataCompra"`
	DataVenda   *string            `json:"dataVenda"`
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (m metadataRequest) update() (engine.MetadataUpdate, error) {
	u := engine.MetadataUpdate{
		Estado:      m.Estado,
		Cidade:      m.Cidade,
		TipoCompra:  m.TipoCompra,
		Vendido:     m.Vendido,
		NumCotistas: m.NumCotistas,
	}
	var err error
	if u.DataCompra, err = parseDate(m.DataCompra); err != nil {
		return u, err
	}
	if u.DataVenda, err = parseDate(m.DataVenda); err != nil {
		return u, err
	}
	return u, nil
}

// SetMetadata handles PATCH /api/session/metadata
func (h *PropertiesHandler) SetMetadata(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := req.update()
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Dates must be YYYY-MM-DD")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.sess.SetMetadata(r.Context(), u); err != nil {
		h.fail(w, r, err, "Failed to update metadata")
		return
	}
	h.writeView(w, r, http.StatusOK)
}

// Recompute handles POST /api/session/recompute
func (h *PropertiesHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.sess.Recompute(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to recompute")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// JobsHandler handles export job endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	supports  func(jobs.JobType) bool
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler. supports tells which job types
// have a configured backend.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, supports func(jobs.JobType) bool, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		supports:  supports,
		log:       log,
	}
}

// Register mounts the job endpoints on mux.
func (h *JobsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/exports", h.EnqueueExport)
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
}

// EnqueueExport handles POST /api/exports
func (h *JobsHandler) EnqueueExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type   string `json:"type"`
		DryRun bool   `json:"dryRun"`
	}
	if !decode(w, r, &req) {
		return
	}

	typ, err := jobs.ParseJobType(req.Type)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.supports(typ) {
		middleware.WriteError(w, http.StatusServiceUnavailable, string(typ)+" is not configured")
		return
	}

	job := &jobs.ExportJob{Type: typ, DryRun: req.DryRun}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("job_type", string(typ)).Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"type":   string(typ),
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
