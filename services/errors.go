package services

import "errors"

// Shell-level errors shared across services and the HTTP error mapping.
// Scheduling outcomes (queue, allocation, lifecycle, concurrency) live
// in the scheduling package; these cover validation and CRUD concerns
// around the engine.
var (
	ErrValidationFailed = errors.New("validation failed")

	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrInvalidCourtCount      = errors.New("tournament court count must not be negative")

	ErrDivisionNameRequired = errors.New("division name is required")
	ErrInvalidBracketType   = errors.New("invalid bracket type")

	ErrCourtLabelRequired      = errors.New("court label is required")
	ErrCourtLabelConflict      = errors.New("court label is already in use in this tournament")
	ErrCourtTournamentMismatch = errors.New("court belongs to a different tournament")
	ErrCourtDivisionRestricted = errors.New("court is restricted to another division")

	ErrMatchTeamsIncomplete = errors.New("both teams are required")

	ErrLogoInvalidContentType = errors.New("unsupported logo content type")
	ErrUploaderNotConfigured  = errors.New("file uploader is not configured")
)
