package template

import (
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

var (
	// ErrUnknownField is returned when a key is not part of the template schema
	ErrUnknownField = errors.New("unknown field")

	// ErrListField is returned when a scalar write targets a list field
	ErrListField = errors.New("list fields cannot be set by key")

	// ErrPayloadMismatch is returned when a payload is not the variant of the template
	ErrPayloadMismatch = errors.New("payload does not match form type")
)

// FieldError is a per-key failure while decoding a generic field map
type FieldError struct {
	Key string
	Err error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

// Fields reads a payload as a map keyed by schema field name
func Fields(p entity.Payload) (map[string]any, error) {
	if fm, ok := p.(entity.FieldMap); ok {
		return maps.Clone(map[string]any(fm)), nil
	}

	out := make(map[string]any)
	if err := mapstructure.Decode(p, &out); err != nil {
		return nil, fmt.Errorf("failed to read payload fields: %w", err)
	}
	return out, nil
}

// SetField writes one scalar field into a copy of p. The value is coerced to
// the schema kind first; on any failure p is returned unchanged together with
// the error.
func (t *Template) SetField(p entity.Payload, key string, value any) (entity.Payload, error) {
	spec, ok := t.Field(key)
	if !ok {
		return p, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.Type, key)
	}
	if spec.Kind == KindList {
		return p, fmt.Errorf("%w: %s", ErrListField, key)
	}
	return t.set(p, spec, value)
}

// Decode converts a legacy field map into the typed payload of the template's
// form type. Fields are decoded one by one so a bad value only loses that
// field; failures and unknown keys come back sorted by key.
func (t *Template) Decode(fm entity.FieldMap) (entity.Payload, []FieldError) {
	p, err := entity.NewPayload(t.Type)
	if err != nil {
		return nil, []FieldError{{Key: "form_type", Err: err}}
	}

	keys := make([]string, 0, len(fm))
	for k := range fm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []FieldError
	for _, key := range keys {
		spec, ok := t.Field(key)
		if !ok {
			errs = append(errs, FieldError{Key: key, Err: ErrUnknownField})
			continue
		}
		next, err := t.set(p, spec, fm[key])
		if err != nil {
			errs = append(errs, FieldError{Key: key, Err: err})
			continue
		}
		p = next
	}

	return p, errs
}

func (t *Template) set(p entity.Payload, spec FieldSpec, value any) (entity.Payload, error) {
	coerced, err := coerce(spec.Kind, value)
	if err != nil {
		return p, fmt.Errorf("invalid %s value for %s: %w", spec.Kind, spec.Key, err)
	}

	if pt, typed := entity.PayloadType(p); typed && pt != t.Type {
		return p, fmt.Errorf("%w: %s payload for %s", ErrPayloadMismatch, pt, t.Type)
	}

	in := map[string]any{spec.Key: coerced}

	switch v := p.(type) {
	case entity.BlastHoleLog:
		return decodeOnto(v, in)
	case entity.QualityReport:
		return decodeOnto(v, in)
	case entity.ProductionDailyLog:
		return decodeOnto(v, in)
	case entity.PumpInspection:
		return decodeOnto(v, in)
	case entity.FireExtinguisherInspection:
		return decodeOnto(v, in)
	case entity.JobCard:
		return decodeOnto(v, in)
	case entity.Timesheet:
		return decodeOnto(v, in)
	case entity.FieldMap:
		out := maps.Clone(v)
		if out == nil {
			out = entity.FieldMap{}
		}
		out[spec.Key] = coerced
		return out, nil
	default:
		return p, fmt.Errorf("%w: %T", ErrPayloadMismatch, p)
	}
}

// decodeOnto applies a partial map on top of a copy of v; keys not present in
// the map keep their current values.
func decodeOnto[T entity.Payload](v T, in map[string]any) (entity.Payload, error) {
	out := v
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return v, err
	}
	if err := dec.Decode(in); err != nil {
		return v, err
	}
	return out, nil
}

func coerce(kind FieldKind, value any) (any, error) {
	switch kind {
	case KindText:
		return cast.ToStringE(value)
	case KindNumber:
		return cast.ToFloat64E(value)
	case KindInteger:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, err
		}
		if f != float64(int(f)) {
			return nil, fmt.Errorf("%v is not a whole number", value)
		}
		return int(f), nil
	case KindBool:
		return cast.ToBoolE(value)
	default:
		return value, nil
	}
}
