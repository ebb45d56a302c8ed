package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/application/dispatcher"
	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/domain/event"
	"github.com/aeci-mmu/fieldforms/internal/domain/validation"
	"github.com/aeci-mmu/fieldforms/internal/domain/workflow"
	"github.com/google/uuid"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrValidationFailed is returned when blocking findings stop a save
	ErrValidationFailed = errors.New("form failed validation")

	// ErrNotEditable is returned when saving a draft over a form that left DRAFT
	ErrNotEditable = errors.New("form is not editable")

	// ErrFormNotFound is returned when a form ID does not exist
	ErrFormNotFound = errors.New("form not found")

	// ErrInvalidForm is returned for requests that cannot be validated at all
	ErrInvalidForm = errors.New("invalid form")
)

// ValidationError carries the findings that blocked a save
type ValidationError struct {
	Findings []entity.ValidationFinding
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d findings", ErrValidationFailed, len(e.Findings))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// SaveResult is a persisted form with the findings it was saved with
type SaveResult struct {
	Form     *entity.Form               `json:"form"`
	Findings []entity.ValidationFinding `json:"findings"`
	Created  bool                       `json:"created"`
}

// FormService runs the validate, persist and notify pipeline for forms
type FormService interface {
	// Validate runs field and same-day relationship checks without saving
	Validate(ctx context.Context, form *entity.Form) (validation.Result, error)

	// SaveDraft persists a draft; ERROR findings are kept, CRITICAL findings refuse the save
	SaveDraft(ctx context.Context, form *entity.Form) (*SaveResult, error)

	// Submit moves a form to SUBMITTED when nothing blocks it and triggers propagation
	Submit(ctx context.Context, form *entity.Form) (*SaveResult, error)

	// Transition applies an approve, reject or rework trigger to a stored form
	Transition(ctx context.Context, id string, trigger workflow.Trigger) (*entity.Form, error)

	Get(ctx context.Context, id string) (*entity.Form, error)
	List(ctx context.Context, siteID string, formType entity.FormType) ([]*entity.Form, error)
}

type formServiceImpl struct {
	repo       port.FormRepository
	engine     *validation.Engine
	dispatcher dispatcher.Dispatcher
	metrics    port.Metrics
	logger     Logger
	now        func() time.Time
}

// NewFormService creates a new FormService
func NewFormService(
	repo port.FormRepository,
	engine *validation.Engine,
	d dispatcher.Dispatcher,
	metrics port.Metrics,
	logger Logger,
) FormService {
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &formServiceImpl{
		repo:       repo,
		engine:     engine,
		dispatcher: d,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *formServiceImpl) Validate(ctx context.Context, form *entity.Form) (validation.Result, error) {
	if form == nil {
		return validation.Result{}, ErrInvalidForm
	}
	return s.validate(ctx, form, s.now())
}

// validate runs the field rules and, for a well-formed form, the relationship
// checks against the rest of the site's day.
func (s *formServiceImpl) validate(ctx context.Context, form *entity.Form, asOf time.Time) (validation.Result, error) {
	result := s.engine.Validate(form, asOf)

	if strings.TrimSpace(form.SiteID) != "" && !form.FormDate.IsZero() {
		day := entity.DateOf(form.FormDate)
		related, err := s.repo.GetFormsBySiteAndDateRange(ctx, form.SiteID, "", day, day)
		if err != nil {
			s.logger.Error("Failed to load related forms", "site_id", form.SiteID, "error", err)
			return result, fmt.Errorf("failed to load related forms: %w", err)
		}
		result = result.Merge(s.engine.ValidateRelationships(form, related))
	}

	s.metrics.ObserveValidation(form.Type, result.Findings())
	return result, nil
}

func (s *formServiceImpl) SaveDraft(ctx context.Context, form *entity.Form) (*SaveResult, error) {
	if form == nil {
		return nil, ErrInvalidForm
	}

	existing, err := s.load(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.IsDraft() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotEditable, existing.ID, existing.Status)
	}
	if err := sameType(form, existing); err != nil {
		return nil, err
	}
	if err := checkVersion(form, existing); err != nil {
		return nil, err
	}

	asOf := s.now()
	draft := form.Clone()
	draft.Status = entity.StatusDraft

	result := s.engine.Validate(draft, asOf)
	s.metrics.ObserveValidation(draft.Type, result.Findings())

	if result.Blocks(validation.DraftPolicy) {
		s.raiseSafetyAlert(ctx, draft, result)
		s.metrics.ObserveSave(draft.Type, entity.StatusDraft, port.OutcomeRejected)
		return nil, &ValidationError{Findings: result.Findings()}
	}

	created, err := s.persist(ctx, draft, existing, asOf)
	if err != nil {
		s.metrics.ObserveSave(draft.Type, entity.StatusDraft, port.OutcomeFailed)
		return nil, err
	}
	s.metrics.ObserveSave(draft.Type, entity.StatusDraft, port.OutcomeSaved)

	s.dispatch(ctx, event.NewEvent(event.TypeFormDraftSaved, draft, map[string]any{
		event.KeyCreated:  created,
		event.KeyFindings: result.Findings(),
	}))

	s.logger.Info("Draft saved", "form_id", draft.ID, "form_type", draft.Type, "findings", len(result.Findings()))
	return &SaveResult{Form: draft, Findings: result.Findings(), Created: created}, nil
}

func (s *formServiceImpl) Submit(ctx context.Context, form *entity.Form) (*SaveResult, error) {
	if form == nil {
		return nil, ErrInvalidForm
	}

	existing, err := s.load(ctx, form.ID)
	if err != nil {
		return nil, err
	}

	if err := sameType(form, existing); err != nil {
		return nil, err
	}
	if err := checkVersion(form, existing); err != nil {
		return nil, err
	}

	status := entity.StatusDraft
	if existing != nil {
		status = existing.Status
	}

	asOf := s.now()
	submitted := form.Clone()

	result, err := s.validate(ctx, submitted, asOf)
	if err != nil {
		return nil, err
	}

	if result.HasCritical() {
		s.raiseSafetyAlert(ctx, submitted, result)
	}

	machine := workflow.NewFormLifecycle(status, func(context.Context) bool {
		return !result.Blocks(validation.SubmitPolicy)
	})
	if err := machine.Fire(ctx, workflow.TriggerSubmit); err != nil {
		if errors.Is(err, workflow.ErrGuardFailed) {
			s.metrics.ObserveSave(submitted.Type, entity.StatusSubmitted, port.OutcomeRejected)
			s.logger.Info("Submission blocked by validation",
				"form_id", submitted.ID,
				"errors", result.Count(entity.SeverityError),
				"critical", result.Count(entity.SeverityCritical),
			)
			return nil, &ValidationError{Findings: result.Findings()}
		}
		return nil, fmt.Errorf("%w: %v", ErrNotEditable, err)
	}
	submitted.Status = machine.State().Status()

	created, err := s.persist(ctx, submitted, existing, asOf)
	if err != nil {
		s.metrics.ObserveSave(submitted.Type, entity.StatusSubmitted, port.OutcomeFailed)
		return nil, err
	}
	s.metrics.ObserveSave(submitted.Type, entity.StatusSubmitted, port.OutcomeSaved)

	s.logger.Info("Form submitted", "form_id", submitted.ID, "form_type", submitted.Type, "site_id", submitted.SiteID)

	s.dispatch(ctx, event.NewEvent(event.TypeFormSubmitted, submitted, map[string]any{
		event.KeyAsOf:     asOf,
		event.KeyCreated:  created,
		event.KeyFindings: result.Findings(),
	}))

	return &SaveResult{Form: submitted, Findings: result.Findings(), Created: created}, nil
}

func (s *formServiceImpl) Transition(ctx context.Context, id string, trigger workflow.Trigger) (*entity.Form, error) {
	form, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if trigger == workflow.TriggerSubmit {
		res, err := s.Submit(ctx, form)
		if err != nil {
			return nil, err
		}
		return res.Form, nil
	}

	from := form.Status
	machine := workflow.NewFormLifecycle(from, nil)
	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, err
	}

	next := form.Clone()
	next.Status = machine.State().Status()
	next.UpdatedAt = s.now()
	if err := s.repo.UpdateForm(ctx, next); err != nil {
		s.logger.Error("Failed to update form status", "form_id", id, "error", err)
		return nil, fmt.Errorf("failed to update form: %w", err)
	}

	s.logger.Info("Form transitioned", "form_id", id, "trigger", trigger, "from", from, "to", next.Status)
	s.dispatch(ctx, event.NewEvent(event.TypeFormTransitioned, next, map[string]any{
		event.KeyTrigger:    string(trigger),
		event.KeyFromStatus: string(from),
		event.KeyToStatus:   string(next.Status),
	}))
	return next, nil
}

func (s *formServiceImpl) Get(ctx context.Context, id string) (*entity.Form, error) {
	form, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, id)
	}
	return form, nil
}

func (s *formServiceImpl) List(ctx context.Context, siteID string, formType entity.FormType) ([]*entity.Form, error) {
	if formType != "" && !formType.IsValid() {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownFormType, formType)
	}
	forms, err := s.repo.GetFormsBySiteAndType(ctx, siteID, formType)
	if err != nil {
		s.logger.Error("Failed to list forms", "site_id", siteID, "form_type", formType, "error", err)
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	return forms, nil
}

func (s *formServiceImpl) load(ctx context.Context, id string) (*entity.Form, error) {
	if id == "" {
		return nil, nil
	}
	form, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get form", "form_id", id, "error", err)
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	return form, nil
}

// persist creates form when there is no stored copy and updates it otherwise.
// Identity fields of a stored form cannot be changed by the caller.
func (s *formServiceImpl) persist(ctx context.Context, form, existing *entity.Form, now time.Time) (bool, error) {
	form.UpdatedAt = now

	if existing == nil {
		if form.ID == "" {
			form.ID = uuid.NewString()
		}
		form.CreatedAt = now
		if _, err := s.repo.SaveForm(ctx, form); err != nil {
			s.logger.Error("Failed to create form", "form_id", form.ID, "error", err)
			return false, fmt.Errorf("failed to save form: %w", err)
		}
		return true, nil
	}

	form.CreatedBy = existing.CreatedBy
	form.CreatedAt = existing.CreatedAt
	if form.Version == 0 {
		form.Version = existing.Version
	}
	if err := s.repo.UpdateForm(ctx, form); err != nil {
		s.logger.Error("Failed to update form", "form_id", form.ID, "error", err)
		return false, fmt.Errorf("failed to update form: %w", err)
	}
	return false, nil
}

// checkVersion rejects edits made against an older copy of the form. A zero
// version means the caller did not load the form first and edits the latest.
func checkVersion(form, existing *entity.Form) error {
	if existing == nil || form.Version == 0 || form.Version == existing.Version {
		return nil
	}
	return fmt.Errorf("%w: %s is at version %d, edit was based on %d",
		port.ErrVersionConflict, existing.ID, existing.Version, form.Version)
}

func sameType(form, existing *entity.Form) error {
	if existing != nil && form.Type != existing.Type {
		return fmt.Errorf("%w: %s cannot change type from %s to %s", ErrInvalidForm, existing.ID, existing.Type, form.Type)
	}
	return nil
}

func (s *formServiceImpl) raiseSafetyAlert(ctx context.Context, form *entity.Form, result validation.Result) {
	critical := make([]entity.ValidationFinding, 0, result.Count(entity.SeverityCritical))
	for _, f := range result.Findings() {
		if f.Severity == entity.SeverityCritical {
			critical = append(critical, f)
		}
	}
	if len(critical) == 0 {
		return
	}

	s.logger.Warn("Safety concern reported", "form_id", form.ID, "form_type", form.Type, "site_id", form.SiteID, "critical", len(critical))
	if s.dispatcher == nil {
		return
	}
	// alert delivery must not hold up or be cancelled with the request
	s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), event.NewEvent(event.TypeSafetyAlert, form, map[string]any{
		event.KeyFindings: critical,
	}))
}

func (s *formServiceImpl) dispatch(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Event handlers failed", "event_type", evt.Type, "form_id", evt.FormID, "error", err)
	}
}
