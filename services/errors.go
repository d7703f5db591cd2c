package services

import "errors"

// Errors returned by the services. Handlers map them to HTTP statuses with
// errors.Is; validation failures wrap ErrValidation and name the field.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateUser      = errors.New("username already taken")
	ErrAlreadyReviewed    = errors.New("you already reviewed this book")
	ErrInvalidQuery       = errors.New("search query is required")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("book not found")
	ErrNotFoundOrNotOwner = errors.New("review not found or not yours")
	ErrInternal           = errors.New("internal server error")
)
