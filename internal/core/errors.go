package core

import "errors"

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidRange       = errors.New("invalid date range")
	ErrDuplicateDate      = errors.New("duplicate record date")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownGranularity = errors.New("unknown granularity")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeQuantity   = errors.New("negative quantity")
	ErrMissingID          = errors.New("missing identifier")
	ErrDuplicateSupplier  = errors.New("duplicate supplier id")
	ErrDuplicateRow       = errors.New("duplicate comparison row id")
	ErrUnknownRow         = errors.New("unknown comparison row")
	ErrNotFound           = errors.New("not found")
)
