package entity

import "time"

// Form is a single field-operations form submission
type Form struct {
	ID        string     `json:"id"`
	Type      FormType   `json:"form_type"`
	SiteID    string     `json:"site_id"`
	CreatedBy string     `json:"created_by"`
	Status    FormStatus `json:"status"`
	FormDate  time.Time  `json:"form_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Version   int64      `json:"version"`
	Payload   Payload    `json:"payload"`
}

// Clone returns a shallow copy of the form. Payload variants are values,
// so only list fields inside them are shared.
func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// IsDraft reports whether the form can still be freely edited
func (f *Form) IsDraft() bool {
	return f.Status == StatusDraft
}

// DateOf truncates t to the start of its calendar day in t's location
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
