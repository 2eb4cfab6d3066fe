package tracking

import "errors"

// ErrValidation is returned when required fields are missing or a status
// value falls outside its canonical set.
var ErrValidation = errors.New("validation error")
