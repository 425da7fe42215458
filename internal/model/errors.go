package model

import "errors"

// Ошибки бизнес-слоя. Проверяются через errors.Is, внешний слой
// отображает их в соответствующие HTTP-статусы (404, 409, 422).
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)
