package entity

import "errors"

var (
	// ErrUnknownFormType is returned for a form type with no payload variant
	ErrUnknownFormType = errors.New("unknown form type")
)
