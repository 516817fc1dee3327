package errors

import (
	"fmt"
)

var (
	ErrNotFound               = fmt.Errorf("not found")
	ErrInvalidTransition      = fmt.Errorf("invalid transition")
	ErrValidation             = fmt.Errorf("validation error")
	ErrConcurrentModification = fmt.Errorf("concurrent modification")
	ErrStore                  = fmt.Errorf("store error")
)
