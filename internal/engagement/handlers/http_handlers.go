package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/controller"
	"github.com/gartstein/consulting/internal/engagement/export"
	"github.com/gartstein/consulting/internal/engagement/lifecycle"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// EngagementController defines the business logic interface the HTTP
// handlers invoke.
type EngagementController interface {
	CreateEngagement(ctx context.Context, engagement *models.Engagement) (*models.Engagement, error)
	GetEngagement(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
	ListEngagements(ctx context.Context, filter models.EngagementFilter) ([]models.Engagement, error)
	Pause(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
	Resume(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
	Finalize(ctx context.Context, id uuid.UUID, in lifecycle.FinalizeInput) (*models.Engagement, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
	CreateMember(ctx context.Context, member *models.Member) (*models.Member, error)
	ListMembers(ctx context.Context) ([]models.Member, error)
	CommissionSummary(ctx context.Context, from, until time.Time) (*controller.CommissionReport, error)
}

// EngagementHandler serves the engagement JSON API.
type EngagementHandler struct {
	service   EngagementController
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEngagementHandler constructs a new EngagementHandler with the given service and logger.
func NewEngagementHandler(service EngagementController, logger *zap.Logger) *EngagementHandler {
	return &EngagementHandler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.Named("http_handler"),
	}
}

// Register adds every route of the API to mux.
func (h *EngagementHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/v1/engagements", h.createEngagement},
		{http.MethodGet, "/v1/engagements", h.listEngagements},
		{http.MethodGet, "/v1/engagements/{id}", h.getEngagement},
		{http.MethodPost, "/v1/engagements/{id}/pause", h.pause},
		{http.MethodPost, "/v1/engagements/{id}/resume", h.resume},
		{http.MethodPost, "/v1/engagements/{id}/finalize", h.finalize},
		{http.MethodPost, "/v1/engagements/{id}/cancel", h.cancel},
		{http.MethodPost, "/v1/members", h.createMember},
		{http.MethodGet, "/v1/members", h.listMembers},
		{http.MethodGet, "/v1/reports/commissions", h.commissionReport},
		{http.MethodGet, "/v1/reports/commissions/export", h.exportCommissionReport},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return fmt.Errorf("register %s %s: %w", r.method, r.pattern, err)
		}
	}
	return nil
}

func (h *EngagementHandler) createEngagement(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req createEngagementRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	en, err := requestToModel(&req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.service.CreateEngagement(r.Context(), en)
	if err != nil {
		h.logger.Error("Create engagement failed", zap.Error(err))
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, modelToResponse(created))
}

func (h *EngagementHandler) getEngagement(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := parseID(params["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	en, err := h.service.GetEngagement(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelToResponse(en))
}

func (h *EngagementHandler) listEngagements(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var filter models.EngagementFilter
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			h.writeError(w, err)
			return
		}
		filter.Status = status
	}
	if raw := q.Get("consultantId"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			h.writeError(w, err)
			return
		}
		filter.ConsultantID = &id
	}

	list, err := h.service.ListEngagements(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := make([]engagementResponse, 0, len(list))
	for i := range list {
		resp = append(resp, modelToResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EngagementHandler) pause(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.applyTransition(w, r, params, h.service.Pause)
}

func (h *EngagementHandler) resume(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.applyTransition(w, r, params, h.service.Resume)
}

func (h *EngagementHandler) cancel(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.applyTransition(w, r, params, h.service.Cancel)
}

func (h *EngagementHandler) finalize(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var req finalizeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.applyTransition(w, r, params, func(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
		return h.service.Finalize(ctx, id, lifecycle.FinalizeInput{
			Rating:             req.Rating,
			SignatureConfirmed: req.ClosingSignatureConfirmed,
		})
	})
}

func (h *EngagementHandler) applyTransition(
	w http.ResponseWriter,
	r *http.Request,
	params map[string]string,
	fn func(context.Context, uuid.UUID) (*models.Engagement, error),
) {
	id, err := parseID(params["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	en, err := fn(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelToResponse(en))
}

func (h *EngagementHandler) createMember(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req createMemberRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	m := &models.Member{
		Name:        req.Name,
		Role:        req.Role,
		ServiceType: req.ServiceType,
		Active:      req.Active == nil || *req.Active,
	}
	created, err := h.service.CreateMember(r.Context(), m)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberToResponse(created))
}

func (h *EngagementHandler) listMembers(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := make([]memberResponse, 0, len(members))
	for i := range members {
		resp = append(resp, memberToResponse(&members[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EngagementHandler) commissionReport(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	report, err := h.loadReport(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := commissionReportResponse{
		From:    report.From.Format(dateLayout),
		Until:   report.Until.Format(dateLayout),
		Payouts: make([]payoutResponse, 0, len(report.Payouts)),
	}
	for i := range report.Payouts {
		resp.Payouts = append(resp.Payouts, payoutToResponse(&report.Payouts[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EngagementHandler) exportCommissionReport(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	report, err := h.loadReport(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCommissionReport(&buf, report.Payouts, report.Engagements); err != nil {
		h.logger.Error("Failed to render commission report", zap.Error(err))
		h.writeError(w, err)
		return
	}

	fileName := fmt.Sprintf("commissions_%s_%s.xlsx", report.From.Format("20060102"), report.Until.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("Failed to write commission report", zap.Error(err))
	}
}

// loadReport reads the [from, to] date range (both inclusive calendar days)
// from the query string. It defaults to the current month.
func (h *EngagementHandler) loadReport(r *http.Request) (*controller.CommissionReport, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 1, 0)

	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid from date", e.ErrValidation)
		}
		from = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid to date", e.ErrValidation)
		}
		until = t.AddDate(0, 0, 1)
	}
	return h.service.CommissionSummary(r.Context(), from, until)
}

func (h *EngagementHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", e.ErrValidation, err)
	}
	if err := h.validator.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", e.ErrValidation, err)
	}
	return nil
}

// writeError maps domain errors to HTTP status codes.
func (h *EngagementHandler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, e.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, e.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, e.ErrInvalidTransition), errors.Is(err, e.ErrConcurrentModification):
		code = http.StatusConflict
	case errors.Is(err, e.ErrStore):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		h.logger.Error("Internal server error", zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid ID %q", e.ErrValidation, raw)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
