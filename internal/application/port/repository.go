package port

import (
	"context"
	"errors"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
)

var (
	// ErrVersionConflict is returned by UpdateForm when the stored version moved
	ErrVersionConflict = errors.New("form was modified concurrently")

	// ErrFormNotFound is returned by UpdateForm when no form has the given ID
	ErrFormNotFound = errors.New("form not found")
)

// FormRepository defines persistence operations for forms
type FormRepository interface {
	// GetByID returns nil, nil when the form does not exist
	GetByID(ctx context.Context, id string) (*entity.Form, error)

	// GetFormsBySiteAndType returns every form of a type for a site, most recently updated first
	GetFormsBySiteAndType(ctx context.Context, siteID string, formType entity.FormType) ([]*entity.Form, error)

	// GetFormsBySiteAndDateRange returns forms of a type whose form date falls in
	// [from, to] (calendar days, inclusive), most recently updated first. An empty
	// formType matches every type.
	GetFormsBySiteAndDateRange(ctx context.Context, siteID string, formType entity.FormType, from, to time.Time) ([]*entity.Form, error)

	// SaveForm inserts a new form, assigning an ID when blank, and returns the ID.
	// The form's Version is set to 1.
	SaveForm(ctx context.Context, form *entity.Form) (string, error)

	// UpdateForm overwrites a form when its stored version equals form.Version,
	// then increments form.Version. ErrVersionConflict otherwise.
	UpdateForm(ctx context.Context, form *entity.Form) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
