package util

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailRegistered = errors.New("email already registered")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrModuleNotFound  = errors.New("module not found")
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrRequestNotFound = errors.New("generation request not found")

	// Generation pipeline taxonomy.
	ErrNoMaterialsFound      = errors.New("no materials found for module")
	ErrProviderAuth          = errors.New("provider authentication failed")
	ErrProviderRateLimited   = errors.New("provider rate limited")
	ErrProviderSafetyBlocked = errors.New("provider blocked the request")
	ErrProviderUnavailable   = errors.New("provider unavailable")
	ErrUnparsableResponse    = errors.New("unparsable provider response")
	ErrInvalidQuiz           = errors.New("generated quiz failed validation")
	ErrPersistence           = errors.New("failed to persist generated quiz")
	ErrStoreUnavailable      = errors.New("quiz cache store unavailable")
)
