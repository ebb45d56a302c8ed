package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/application/service"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/domain/template"
	"github.com/aeci-mmu/fieldforms/internal/domain/workflow"
	"github.com/aeci-mmu/fieldforms/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Dependencies
	logger Logger
	now    func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger Logger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success  bool                       `json:"success"`
	Data     interface{}                `json:"data,omitempty"`
	Error    string                     `json:"error,omitempty"`
	Findings []entity.ValidationFinding `json:"findings,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// FormRequest is the body of validate, save and submit calls. A typed
// payload goes in Payload; legacy clients send loose values in Fields.
type FormRequest struct {
	ID        string          `json:"id"`
	FormType  string          `json:"form_type" binding:"required"`
	SiteID    string          `json:"site_id"`
	CreatedBy string          `json:"created_by"`
	FormDate  string          `json:"form_date"`
	Version   int64           `json:"version"`
	Payload   json.RawMessage `json:"payload"`
	Fields    map[string]any  `json:"fields"`
}

// TransitionRequest is the body of a lifecycle transition
type TransitionRequest struct {
	Trigger string `json:"trigger" binding:"required"`
}

// ValidationResponse is the outcome of a dry-run validation
type ValidationResponse struct {
	Valid    bool                       `json:"valid"`
	Findings []entity.ValidationFinding `json:"findings"`
}

// TemplateResponse describes one form type
type TemplateResponse struct {
	FormType    entity.FormType   `json:"form_type"`
	DisplayName string            `json:"display_name"`
	Fields      []FieldResponse   `json:"fields"`
	Targets     []entity.FormType `json:"propagates_to,omitempty"`
}

// FieldResponse describes one template field
type FieldResponse struct {
	Key  string `json:"key"`
	Kind string `json:"kind"`
}

// toForm converts the request into a form, rejecting malformed input
func (r *FormRequest) toForm() (*entity.Form, error) {
	formType := entity.FormType(r.FormType)
	if !formType.IsValid() {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownFormType, r.FormType)
	}

	form := &entity.Form{
		ID:        utils.SanitizeString(r.ID),
		Type:      formType,
		SiteID:    utils.SanitizeString(r.SiteID),
		CreatedBy: utils.SanitizeString(r.CreatedBy),
		Version:   r.Version,
	}

	if r.FormDate != "" {
		date, err := time.Parse(entity.DateLayout, r.FormDate)
		if err != nil {
			return nil, fmt.Errorf("%w: form_date must be YYYY-MM-DD", service.ErrInvalidForm)
		}
		form.FormDate = date
	}

	switch {
	case len(r.Payload) > 0 && string(r.Payload) != "null":
		p, err := entity.DecodePayload(formType, r.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidForm, err)
		}
		form.Payload = p
	case r.Fields != nil:
		form.Payload = entity.FieldMap(r.Fields)
	}
	return form, nil
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	if h.deps.Health != nil {
		if err := h.deps.Health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "unhealthy"})
			return
		}
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: h.now().UTC().Format(time.RFC3339),
		},
	})
}

// ListTemplates handles GET /api/templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	registry := h.deps.Registry
	if registry == nil {
		registry = template.DefaultRegistry()
	}

	out := make([]TemplateResponse, 0, len(registry.Types()))
	for _, t := range registry.Types() {
		tmpl, _ := registry.Get(t)
		out = append(out, TemplateResponse{
			FormType:    t,
			DisplayName: tmpl.DisplayName,
			Fields: lo.Map(tmpl.Fields, func(f template.FieldSpec, _ int) FieldResponse {
				return FieldResponse{Key: f.Key, Kind: string(f.Kind)}
			}),
			Targets: lo.Map(tmpl.Relationships, func(r template.RelationshipRule, _ int) entity.FormType {
				return r.TargetType
			}),
		})
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// ValidateForm handles POST /api/forms/validate
func (h *Handlers) ValidateForm(c *gin.Context) {
	form, ok := h.bindForm(c)
	if !ok {
		return
	}

	result, err := h.deps.Forms.Validate(c.Request.Context(), form)
	if err != nil {
		h.writeError(c, err)
		return
	}

	findings := result.Findings()
	if findings == nil {
		findings = []entity.ValidationFinding{}
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    ValidationResponse{Valid: result.IsValid(), Findings: findings},
	})
}

// SaveDraft handles POST /api/forms
func (h *Handlers) SaveDraft(c *gin.Context) {
	form, ok := h.bindForm(c)
	if !ok {
		return
	}

	res, err := h.deps.Forms.SaveDraft(c.Request.Context(), form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(savedStatus(res), Response{Success: true, Data: res})
}

// SubmitForm handles POST /api/forms/submit
func (h *Handlers) SubmitForm(c *gin.Context) {
	form, ok := h.bindForm(c)
	if !ok {
		return
	}

	res, err := h.deps.Forms.Submit(c.Request.Context(), form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(savedStatus(res), Response{Success: true, Data: res})
}

// GetForm handles GET /api/forms/:id
func (h *Handlers) GetForm(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateIdentifier("form id", id); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	form, err := h.deps.Forms.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: form})
}

// TransitionForm handles POST /api/forms/:id/transition
func (h *Handlers) TransitionForm(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateIdentifier("form id", id); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "trigger is required")
		return
	}
	trigger, ok := workflow.ParseTrigger(req.Trigger)
	if !ok {
		h.badRequest(c, fmt.Sprintf("unknown trigger %q", req.Trigger))
		return
	}

	form, err := h.deps.Forms.Transition(c.Request.Context(), id, trigger)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: form})
}

// ListSiteForms handles GET /api/sites/:site/forms?type=
func (h *Handlers) ListSiteForms(c *gin.Context) {
	site, ok := h.siteParam(c)
	if !ok {
		return
	}

	forms, err := h.deps.Forms.List(c.Request.Context(), site, entity.FormType(c.Query("type")))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if forms == nil {
		forms = []*entity.Form{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: forms})
}

// GetAggregate handles GET /api/sites/:site/aggregate?date=
func (h *Handlers) GetAggregate(c *gin.Context) {
	site, ok := h.siteParam(c)
	if !ok {
		return
	}
	date, ok := h.dateQuery(c)
	if !ok {
		return
	}

	agg, err := h.deps.Aggregator.Aggregate(c.Request.Context(), site, date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: agg})
}

// GetDailyReport handles GET /api/sites/:site/report?date= and returns the xlsx workbook
func (h *Handlers) GetDailyReport(c *gin.Context) {
	site, ok := h.siteParam(c)
	if !ok {
		return
	}
	date, ok := h.dateQuery(c)
	if !ok {
		return
	}
	if h.deps.Reports == nil {
		h.writeError(c, service.ErrReportUnavailable)
		return
	}

	data, name, err := h.deps.Reports.ExportDailyReport(c.Request.Context(), site, date)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(name)))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handlers) bindForm(c *gin.Context) (*entity.Form, bool) {
	var req FormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return nil, false
	}
	form, err := req.toForm()
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return form, true
}

func (h *Handlers) siteParam(c *gin.Context) (string, bool) {
	site := c.Param("site")
	if err := utils.ValidateIdentifier("site", site); err != nil {
		h.badRequest(c, err.Error())
		return "", false
	}
	return site, true
}

// dateQuery reads ?date=YYYY-MM-DD, defaulting to today in UTC
func (h *Handlers) dateQuery(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return entity.DateOf(h.now().UTC()), true
	}
	date, err := time.Parse(entity.DateLayout, raw)
	if err != nil {
		h.badRequest(c, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// writeError maps service errors onto status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success:  false,
			Error:    service.ErrValidationFailed.Error(),
			Findings: verr.Findings,
		})
	case errors.Is(err, service.ErrFormNotFound), errors.Is(err, port.ErrFormNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrNotEditable),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, port.ErrVersionConflict):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrInvalidForm), errors.Is(err, entity.ErrUnknownFormType):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrReportUnavailable):
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}

func savedStatus(res *service.SaveResult) int {
	if res.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}
