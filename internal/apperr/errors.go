package apperr

import "errors"

var (
	ErrItemNotFound   = errors.New("item not found")
	ErrParentNotFound = errors.New("parent folder not found")
	ErrNotFound       = errors.New("not found")
)
