package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/aeci-mmu/fieldforms/internal/infrastructure/persistence/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	payloadTyped  = "typed"
	payloadFields = "fields"

	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

const formColumns = `id, form_type, site_id, created_by, status, form_date,
	payload_kind, payload, version, created_at, updated_at`

// FormRepository implements port.FormRepository on SQLite. Payloads are
// stored as JSON next to a kind marker for the legacy field-map path.
type FormRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFormRepository creates a new form repository
func NewFormRepository(db *sql.DB, logger *zap.Logger) *FormRepository {
	return &FormRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a form; nil, nil when it does not exist
func (r *FormRepository) GetByID(ctx context.Context, id string) (*entity.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE id = ?`

	form, err := scanForm(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get form", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	return form, nil
}

// GetFormsBySiteAndType lists a site's forms, optionally of one type
func (r *FormRepository) GetFormsBySiteAndType(ctx context.Context, siteID string, formType entity.FormType) ([]*entity.Form, error) {
	where := []string{"site_id = ?"}
	args := []interface{}{siteID}
	if formType != "" {
		where = append(where, "form_type = ?")
		args = append(args, string(formType))
	}
	return r.query(ctx, where, args)
}

// GetFormsBySiteAndDateRange lists a site's forms dated within [from, to]
func (r *FormRepository) GetFormsBySiteAndDateRange(ctx context.Context, siteID string, formType entity.FormType, from, to time.Time) ([]*entity.Form, error) {
	where := []string{"site_id = ?", "form_date >= ?", "form_date <= ?"}
	args := []interface{}{siteID, from.Format(entity.DateLayout), to.Format(entity.DateLayout)}
	if formType != "" {
		where = append(where, "form_type = ?")
		args = append(args, string(formType))
	}
	return r.query(ctx, where, args)
}

func (r *FormRepository) query(ctx context.Context, where []string, args []interface{}) ([]*entity.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY updated_at DESC, id ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query forms", zap.Error(err))
		return nil, fmt.Errorf("failed to query forms: %w", err)
	}
	defer rows.Close()

	var forms []*entity.Form
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan form: %w", err)
		}
		forms = append(forms, form)
	}
	return forms, rows.Err()
}

// SaveForm inserts a form, assigning an ID when blank
func (r *FormRepository) SaveForm(ctx context.Context, form *entity.Form) (string, error) {
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if form.CreatedAt.IsZero() {
		form.CreatedAt = now
	}
	if form.UpdatedAt.IsZero() {
		form.UpdatedAt = form.CreatedAt
	}
	if form.Status == "" {
		form.Status = entity.StatusDraft
	}

	kind, payload, err := encodePayload(form.Payload)
	if err != nil {
		return "", err
	}

	query := `INSERT INTO forms (` + formColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`
	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		form.ID,
		string(form.Type),
		form.SiteID,
		form.CreatedBy,
		string(form.Status),
		form.FormDate.Format(entity.DateLayout),
		kind,
		payload,
		form.CreatedAt.UTC().Format(timestampLayout),
		form.UpdatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		r.logger.Error("Failed to insert form", zap.String("id", form.ID), zap.Error(err))
		return "", fmt.Errorf("failed to insert form: %w", err)
	}

	form.Version = 1
	r.logger.Debug("Form inserted", zap.String("id", form.ID), zap.String("form_type", string(form.Type)))
	return form.ID, nil
}

// UpdateForm overwrites a form when the stored version matches form.Version
func (r *FormRepository) UpdateForm(ctx context.Context, form *entity.Form) error {
	kind, payload, err := encodePayload(form.Payload)
	if err != nil {
		return err
	}
	if form.UpdatedAt.IsZero() {
		form.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE forms
		SET site_id = ?, created_by = ?, status = ?, form_date = ?,
			payload_kind = ?, payload = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`
	exec := r.getExecutor(ctx)
	result, err := exec.ExecContext(ctx, query,
		form.SiteID,
		form.CreatedBy,
		string(form.Status),
		form.FormDate.Format(entity.DateLayout),
		kind,
		payload,
		form.UpdatedAt.UTC().Format(timestampLayout),
		form.ID,
		form.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update form", zap.String("id", form.ID), zap.Error(err))
		return fmt.Errorf("failed to update form: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM forms WHERE id = ?`, form.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check form: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", port.ErrFormNotFound, form.ID)
		}
		r.logger.Warn("Form version conflict", zap.String("id", form.ID), zap.Int64("version", form.Version))
		return fmt.Errorf("%w: %s at version %d", port.ErrVersionConflict, form.ID, form.Version)
	}

	form.Version++
	return nil
}

func (r *FormRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanForm(row rowScanner) (*entity.Form, error) {
	var (
		form                           entity.Form
		formType, status               string
		formDate, createdAt, updatedAt string
		kind, payload                  string
	)
	err := row.Scan(
		&form.ID,
		&formType,
		&form.SiteID,
		&form.CreatedBy,
		&status,
		&formDate,
		&kind,
		&payload,
		&form.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	form.Type = entity.FormType(formType)
	form.Status = entity.FormStatus(status)

	if form.FormDate, err = time.Parse(entity.DateLayout, formDate); err != nil {
		return nil, fmt.Errorf("invalid form_date %q: %w", formDate, err)
	}
	if form.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if form.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	if form.Payload, err = decodePayload(form.Type, kind, payload); err != nil {
		return nil, fmt.Errorf("form %s: %w", form.ID, err)
	}
	return &form, nil
}

func encodePayload(p entity.Payload) (string, string, error) {
	kind := payloadTyped
	if _, ok := p.(entity.FieldMap); ok {
		kind = payloadFields
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return kind, string(data), nil
}

func decodePayload(t entity.FormType, kind, data string) (entity.Payload, error) {
	if data == "" || data == "null" {
		return nil, nil
	}
	if kind == payloadFields {
		var fm entity.FieldMap
		if err := json.Unmarshal([]byte(data), &fm); err != nil {
			return nil, fmt.Errorf("failed to decode field map: %w", err)
		}
		return fm, nil
	}
	return entity.DecodePayload(t, []byte(data))
}

// Verify interface compliance
var _ port.FormRepository = (*FormRepository)(nil)
