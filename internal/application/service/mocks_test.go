package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

// mockFormRepo is an in-memory FormRepository with optional overrides
type mockFormRepo struct {
	mu    sync.Mutex
	forms map[string]*entity.Form

	saveCalls   int
	updateCalls int
	queryCalls  int

	saveFunc   func(ctx context.Context, form *entity.Form) (string, error)
	updateFunc func(ctx context.Context, form *entity.Form) error
	rangeFunc  func(ctx context.Context, siteID string, formType entity.FormType, from, to time.Time) ([]*entity.Form, error)
}

func newMockFormRepo(forms ...*entity.Form) *mockFormRepo {
	m := &mockFormRepo{forms: make(map[string]*entity.Form)}
	for _, f := range forms {
		m.forms[f.ID] = f.Clone()
	}
	return m
}

func (m *mockFormRepo) GetByID(ctx context.Context, id string) (*entity.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.forms[id]; ok {
		return f.Clone(), nil
	}
	return nil, nil
}

func (m *mockFormRepo) GetFormsBySiteAndType(ctx context.Context, siteID string, formType entity.FormType) ([]*entity.Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++

	var out []*entity.Form
	for _, f := range m.forms {
		if f.SiteID == siteID && (formType == "" || f.Type == formType) {
			out = append(out, f.Clone())
		}
	}
	sortForms(out)
	return out, nil
}

func (m *mockFormRepo) GetFormsBySiteAndDateRange(ctx context.Context, siteID string, formType entity.FormType, from, to time.Time) ([]*entity.Form, error) {
	if m.rangeFunc != nil {
		return m.rangeFunc(ctx, siteID, formType, from, to)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++

	from, to = entity.DateOf(from), entity.DateOf(to)
	var out []*entity.Form
	for _, f := range m.forms {
		day := entity.DateOf(f.FormDate)
		if f.SiteID != siteID || (formType != "" && f.Type != formType) {
			continue
		}
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, f.Clone())
	}
	sortForms(out)
	return out, nil
}

func (m *mockFormRepo) SaveForm(ctx context.Context, form *entity.Form) (string, error) {
	m.mu.Lock()
	m.saveCalls++
	m.mu.Unlock()

	if m.saveFunc != nil {
		return m.saveFunc(ctx, form)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if form.ID == "" {
		form.ID = "generated"
	}
	form.Version = 1
	m.forms[form.ID] = form.Clone()
	return form.ID, nil
}

func (m *mockFormRepo) UpdateForm(ctx context.Context, form *entity.Form) error {
	m.mu.Lock()
	m.updateCalls++
	m.mu.Unlock()

	if m.updateFunc != nil {
		return m.updateFunc(ctx, form)
	}
	return m.storeUpdate(form)
}

func (m *mockFormRepo) storeUpdate(form *entity.Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.forms[form.ID]
	if !ok {
		return port.ErrFormNotFound
	}
	if stored.Version != form.Version {
		return port.ErrVersionConflict
	}
	form.Version++
	m.forms[form.ID] = form.Clone()
	return nil
}

func (m *mockFormRepo) get(id string) *entity.Form {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forms[id]
}

func (m *mockFormRepo) ofType(t entity.FormType) []*entity.Form {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Form
	for _, f := range m.forms {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

func sortForms(forms []*entity.Form) {
	sort.Slice(forms, func(i, j int) bool {
		if !forms[i].UpdatedAt.Equal(forms[j].UpdatedAt) {
			return forms[i].UpdatedAt.After(forms[j].UpdatedAt)
		}
		return forms[i].ID < forms[j].ID
	})
}

var _ port.FormRepository = (*mockFormRepo)(nil)

type recordingMetrics struct {
	mu           sync.Mutex
	saves        []string
	propagations []string
}

func (m *recordingMetrics) ObserveValidation(entity.FormType, []entity.ValidationFinding) {}

func (m *recordingMetrics) ObserveSave(t entity.FormType, status entity.FormStatus, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, string(status)+":"+outcome)
}

func (m *recordingMetrics) ObservePropagation(source, target entity.FormType, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.propagations = append(m.propagations, string(target)+":"+action)
}
