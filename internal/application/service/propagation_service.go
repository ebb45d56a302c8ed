package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/application/dispatcher"
	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/domain/event"
	"github.com/aeci-mmu/fieldforms/internal/domain/template"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Propagation actions recorded per rule
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionSkipped = "skipped"
	ActionFailed  = "failed"
)

// FieldFailure is a mapped value that could not be written; the target kept its previous value
type FieldFailure struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// RuleOutcome is the result of applying one relationship rule
type RuleOutcome struct {
	TargetType entity.FormType `json:"target_type"`
	TargetID   string          `json:"target_id,omitempty"`
	Action     string          `json:"action"`
	Attempts   int             `json:"attempts"`
	Fields     []FieldFailure  `json:"field_failures,omitempty"`
	Err        error           `json:"-"`
}

// PropagationReport lists what happened to each rule of one source form
type PropagationReport struct {
	SourceID   string          `json:"source_id"`
	SourceType entity.FormType `json:"source_type"`
	AsOf       time.Time       `json:"as_of"`
	Outcomes   []RuleOutcome   `json:"outcomes"`
}

// TargetIDs returns the IDs of created or updated targets in rule order
func (r *PropagationReport) TargetIDs() []string {
	return lo.FilterMap(r.Outcomes, func(o RuleOutcome, _ int) (string, bool) {
		return o.TargetID, o.TargetID != "" && (o.Action == ActionCreated || o.Action == ActionUpdated)
	})
}

// Failed returns the outcomes of rules that failed
func (r *PropagationReport) Failed() []RuleOutcome {
	return lo.Filter(r.Outcomes, func(o RuleOutcome, _ int) bool { return o.Action == ActionFailed })
}

// PropagationService keeps derived values consistent across related same-day forms
type PropagationService interface {
	// OnFormSaved applies the relationship rules of source's type to the target
	// forms for asOf's calendar day. Rule failures are recorded in the report;
	// the error is only set when ctx is done before every rule ran.
	OnFormSaved(ctx context.Context, source *entity.Form, asOf time.Time) (*PropagationReport, error)

	// Aggregate computes the daily totals for a site from the three operational form types
	Aggregate(ctx context.Context, siteID string, date time.Time) (*entity.AggregatedFormData, error)

	// HandleFormSubmitted is the dispatcher hook for form.submitted events
	HandleFormSubmitted(ctx context.Context, evt *event.Event) error
}

// PropagationConfig tunes conflict handling
type PropagationConfig struct {
	// MaxConflictRetries is how many times a rule is re-read and re-applied after a version conflict
	MaxConflictRetries int
}

type propagationServiceImpl struct {
	repo       port.FormRepository
	txManager  port.TransactionManager
	registry   *template.Registry
	dispatcher dispatcher.Dispatcher
	metrics    port.Metrics
	cfg        PropagationConfig
	logger     Logger
	now        func() time.Time
}

// NewPropagationService creates a new PropagationService. txManager and
// dispatcher may be nil.
func NewPropagationService(
	repo port.FormRepository,
	txManager port.TransactionManager,
	registry *template.Registry,
	d dispatcher.Dispatcher,
	metrics port.Metrics,
	cfg PropagationConfig,
	logger Logger,
) PropagationService {
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &propagationServiceImpl{
		repo:       repo,
		txManager:  txManager,
		registry:   registry,
		dispatcher: d,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *propagationServiceImpl) OnFormSaved(ctx context.Context, source *entity.Form, asOf time.Time) (*PropagationReport, error) {
	if source == nil {
		return nil, errors.New("source form is required")
	}

	report := &PropagationReport{SourceID: source.ID, SourceType: source.Type, AsOf: asOf}

	rules := s.registry.RulesFor(source.Type)
	if len(rules) == 0 {
		return report, nil
	}

	fields, err := s.sourceFields(source)
	if err != nil {
		s.logger.Error("Failed to read source fields", "form_id", source.ID, "error", err)
		for _, rule := range rules {
			report.Outcomes = append(report.Outcomes, RuleOutcome{TargetType: rule.TargetType, Action: ActionFailed, Err: err})
		}
		return report, nil
	}

	day := entity.DateOf(asOf)
	for i, rule := range rules {
		if err := ctx.Err(); err != nil {
			for _, rest := range rules[i:] {
				report.Outcomes = append(report.Outcomes, RuleOutcome{TargetType: rest.TargetType, Action: ActionFailed, Err: err})
			}
			s.logger.Warn("Propagation cancelled", "form_id", source.ID, "remaining_rules", len(rules)-i)
			return report, err
		}

		outcome := s.applyRule(ctx, source, fields, rule, day)
		report.Outcomes = append(report.Outcomes, outcome)
		s.metrics.ObservePropagation(source.Type, rule.TargetType, outcome.Action)
	}

	return report, nil
}

// sourceFields reads the source payload by field name. For legacy field maps,
// values that do not decode are passed through raw so the target keeps its
// previous value for them.
func (s *propagationServiceImpl) sourceFields(source *entity.Form) (map[string]any, error) {
	fm, legacy := source.Payload.(entity.FieldMap)
	if !legacy {
		if source.Payload == nil {
			return nil, errors.New("source form has no payload")
		}
		return template.Fields(source.Payload)
	}

	tmpl, found := s.registry.Get(source.Type)
	if !found {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnknownFormType, source.Type)
	}
	typed, errs := tmpl.Decode(fm)
	fields, err := template.Fields(typed)
	if err != nil {
		return nil, err
	}
	for _, fe := range errs {
		if errors.Is(fe.Err, template.ErrUnknownField) {
			continue
		}
		if raw, ok := fm[fe.Key]; ok {
			fields[fe.Key] = raw
		}
	}
	return fields, nil
}

// applyRule runs one rule with conflict retries. Any failure is contained in
// the returned outcome.
func (s *propagationServiceImpl) applyRule(ctx context.Context, source *entity.Form, fields map[string]any, rule template.RelationshipRule, day time.Time) (outcome RuleOutcome) {
	outcome = RuleOutcome{TargetType: rule.TargetType}

	defer func() {
		if r := recover(); r != nil {
			outcome.Action = ActionFailed
			outcome.Err = fmt.Errorf("rule panic: %v", r)
			s.logger.Error("Propagation rule panicked",
				"form_id", source.ID, "target_type", rule.TargetType, "panic", r)
		}
	}()

	if !rule.Applies(fields) {
		outcome.Action = ActionSkipped
		return outcome
	}

	tmpl, ok := s.registry.Get(rule.TargetType)
	if !ok {
		outcome.Action = ActionFailed
		outcome.Err = fmt.Errorf("%w: %s", entity.ErrUnknownFormType, rule.TargetType)
		return outcome
	}

	for attempt := 1; attempt <= s.cfg.MaxConflictRetries+1; attempt++ {
		outcome.Attempts = attempt
		outcome.Fields = nil

		err := s.withTx(ctx, func(txCtx context.Context) error {
			return s.applyOnce(txCtx, source, fields, rule, tmpl, day, &outcome)
		})
		if err == nil {
			s.logger.Info("Propagated form",
				"form_id", source.ID,
				"target_type", rule.TargetType,
				"target_id", outcome.TargetID,
				"action", outcome.Action,
				"attempts", attempt,
			)
			s.notifyPropagated(ctx, source, outcome)
			return outcome
		}

		outcome.Err = err
		if !errors.Is(err, port.ErrVersionConflict) || ctx.Err() != nil {
			break
		}
		s.logger.Warn("Version conflict during propagation, retrying",
			"form_id", source.ID, "target_id", outcome.TargetID, "attempt", attempt)
	}

	outcome.Action = ActionFailed
	s.logger.Error("Propagation rule failed",
		"form_id", source.ID,
		"target_type", rule.TargetType,
		"attempts", outcome.Attempts,
		"error", outcome.Err,
	)
	return outcome
}

func (s *propagationServiceImpl) applyOnce(
	ctx context.Context,
	source *entity.Form,
	fields map[string]any,
	rule template.RelationshipRule,
	tmpl *template.Template,
	day time.Time,
	outcome *RuleOutcome,
) error {
	candidates, err := s.repo.GetFormsBySiteAndDateRange(ctx, source.SiteID, rule.TargetType, day, day)
	if err != nil {
		return fmt.Errorf("failed to find %s targets: %w", rule.TargetType, err)
	}
	candidates = lo.Filter(candidates, func(f *entity.Form, _ int) bool {
		return f != nil && f.ID != source.ID
	})

	now := s.now()

	if len(candidates) == 0 {
		payload, err := entity.NewPayload(rule.TargetType)
		if err != nil {
			return err
		}
		target := &entity.Form{
			ID:        uuid.NewString(),
			Type:      rule.TargetType,
			SiteID:    source.SiteID,
			CreatedBy: source.CreatedBy,
			Status:    entity.StatusDraft,
			FormDate:  day,
			CreatedAt: now,
			UpdatedAt: now,
		}
		target.Payload, outcome.Fields = applyMappings(tmpl, payload, fields, rule.Mappings)

		id, err := s.repo.SaveForm(ctx, target)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", rule.TargetType, err)
		}
		outcome.TargetID = id
		outcome.Action = ActionCreated
		return nil
	}

	target := pickTarget(candidates).Clone()
	outcome.TargetID = target.ID

	// legacy field maps stay field maps so keys outside the mapping survive
	payload := target.Payload
	if payload == nil {
		if payload, err = entity.NewPayload(rule.TargetType); err != nil {
			return err
		}
	}

	target.Payload, outcome.Fields = applyMappings(tmpl, payload, fields, rule.Mappings)
	target.UpdatedAt = now

	if err := s.repo.UpdateForm(ctx, target); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", rule.TargetType, target.ID, err)
	}
	outcome.Action = ActionUpdated
	return nil
}

// applyMappings writes each mapped source value into payload. A value that
// cannot be written leaves the target field at its previous value.
func applyMappings(tmpl *template.Template, payload entity.Payload, fields map[string]any, mappings []template.Mapping) (entity.Payload, []FieldFailure) {
	var failures []FieldFailure
	for _, m := range mappings {
		value, ok := fields[m.Source]
		if !ok {
			failures = append(failures, FieldFailure{Source: m.Source, Target: m.Target, Reason: "source field missing"})
			continue
		}
		if m.Transform != nil {
			transformed, err := m.Transform(value)
			if err != nil {
				failures = append(failures, FieldFailure{Source: m.Source, Target: m.Target, Reason: err.Error()})
				continue
			}
			value = transformed
		}

		next, err := tmpl.SetField(payload, m.Target, value)
		if err != nil {
			failures = append(failures, FieldFailure{Source: m.Source, Target: m.Target, Reason: err.Error()})
			continue
		}
		payload = next
	}
	return payload, failures
}

// pickTarget chooses the most recently updated form, then the lowest ID
func pickTarget(forms []*entity.Form) *entity.Form {
	return lo.MaxBy(forms, func(a, b *entity.Form) bool {
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
}

func (s *propagationServiceImpl) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.WithTransaction(ctx, fn)
}

func (s *propagationServiceImpl) notifyPropagated(ctx context.Context, source *entity.Form, outcome RuleOutcome) {
	if s.dispatcher == nil {
		return
	}
	evt := event.NewEvent(event.TypeFormPropagated, source, map[string]any{
		event.KeyTargetID:   outcome.TargetID,
		event.KeyTargetType: string(outcome.TargetType),
		event.KeyOutcome:    outcome.Action,
	})
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Failed to dispatch propagation event", "form_id", source.ID, "error", err)
	}
}

func (s *propagationServiceImpl) HandleFormSubmitted(ctx context.Context, evt *event.Event) error {
	if evt.Form == nil {
		return errors.New("form.submitted event carries no form")
	}

	asOf := evt.GetPayloadTime(event.KeyAsOf)
	if asOf.IsZero() {
		asOf = evt.Timestamp
	}

	report, err := s.OnFormSaved(ctx, evt.Form, asOf)
	if err != nil {
		return err
	}
	if failed := report.Failed(); len(failed) > 0 {
		s.logger.Warn("Propagation finished with failed rules",
			"form_id", evt.FormID, "failed_rules", len(failed), "rules", len(report.Outcomes))
	}
	return nil
}

func (s *propagationServiceImpl) Aggregate(ctx context.Context, siteID string, date time.Time) (*entity.AggregatedFormData, error) {
	day := entity.DateOf(date)

	forms, err := s.repo.GetFormsBySiteAndDateRange(ctx, siteID, "", day, day)
	if err != nil {
		s.logger.Error("Failed to load forms for aggregate", "site_id", siteID, "error", err)
		return nil, fmt.Errorf("failed to load forms: %w", err)
	}

	payloads := lo.FilterMap(forms, func(f *entity.Form, _ int) (entity.Payload, bool) {
		p, ok := s.typedPayload(f)
		return p, ok
	})

	blasts := ofType[entity.BlastHoleLog](payloads)
	quality := ofType[entity.QualityReport](payloads)
	production := ofType[entity.ProductionDailyLog](payloads)

	agg := &entity.AggregatedFormData{
		SiteID:                siteID,
		Date:                  day,
		BlastLogCount:         len(blasts),
		TotalHoles:            lo.SumBy(blasts, func(b entity.BlastHoleLog) int { return b.TotalHoles }),
		TotalEmulsionBlasted:  lo.SumBy(blasts, func(b entity.BlastHoleLog) float64 { return b.TotalEmulsionUsed }),
		QualityReportCount:    len(quality),
		ProductionLogCount:    len(production),
		TotalEmulsionProduced: lo.SumBy(production, func(p entity.ProductionDailyLog) float64 { return p.EmulsionProducedKg }),
		TotalEmulsionUsed:     lo.SumBy(production, func(p entity.ProductionDailyLog) float64 { return p.EmulsionUsedToday }),
		TotalDowntimeHours:    lo.SumBy(production, func(p entity.ProductionDailyLog) float64 { return p.DowntimeHours }),
	}
	if len(quality) > 0 {
		agg.AveragePH = lo.SumBy(quality, func(q entity.QualityReport) float64 { return q.PHLevel }) / float64(len(quality))
		agg.AverageDensity = lo.SumBy(quality, func(q entity.QualityReport) float64 { return q.DensityGCm3 }) / float64(len(quality))
	}

	return agg, nil
}

func (s *propagationServiceImpl) typedPayload(f *entity.Form) (entity.Payload, bool) {
	if f == nil || f.Payload == nil {
		return nil, false
	}
	if fm, ok := f.Payload.(entity.FieldMap); ok {
		tmpl, found := s.registry.Get(f.Type)
		if !found {
			return nil, false
		}
		p, _ := tmpl.Decode(fm)
		return p, true
	}
	return f.Payload, true
}

func ofType[T entity.Payload](payloads []entity.Payload) []T {
	return lo.FilterMap(payloads, func(p entity.Payload, _ int) (T, bool) {
		v, ok := p.(T)
		return v, ok
	})
}
