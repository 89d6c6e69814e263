package attendance

import "errors"

var (
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrMalformedRow      = errors.New("malformed attendance row")
	ErrMissingColumn     = errors.New("missing required column")
	ErrUploadNotFound    = errors.New("attendance upload not found")
	ErrEmptyUpload       = errors.New("attendance upload has no rows")
)
