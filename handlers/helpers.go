package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/courtside/repositories"
	"github.com/Dosada05/courtside/scheduling"
	"github.com/Dosada05/courtside/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

var errMissingSlug = errors.New("missing slug parameter")

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func urlParamInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return value, nil
}

func queryParamInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return nil, fmt.Errorf("invalid %s parameter", name)
	}
	return &value, nil
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError,
		"the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func serviceUnavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("storage unavailable",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	errorResponse(w, r, http.StatusServiceUnavailable, "storage is temporarily unavailable")
}

// mapServiceErrorToHTTP translates scheduling and service sentinels into
// HTTP statuses. Concurrency conflicts return 409 so clients know to
// re-fetch and retry with a fresh version.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound),
		errors.Is(err, repositories.ErrCourtNotFound),
		errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrDivisionNotFound),
		errors.Is(err, repositories.ErrBracketNotFound),
		errors.Is(err, repositories.ErrTeamNotFound):
		notFoundResponse(w, r)

	case errors.Is(err, scheduling.ErrConcurrentModification),
		errors.Is(err, scheduling.ErrAlreadyQueued),
		errors.Is(err, scheduling.ErrCourtOccupied),
		errors.Is(err, scheduling.ErrMatchAlreadyAssigned),
		errors.Is(err, services.ErrTournamentNameConflict),
		errors.Is(err, services.ErrCourtLabelConflict):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, scheduling.ErrMatchNotQueued),
		errors.Is(err, scheduling.ErrMatchNotQueueable),
		errors.Is(err, scheduling.ErrCourtUnavailable),
		errors.Is(err, scheduling.ErrInvalidTransition),
		errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrInvalidCourtCount),
		errors.Is(err, services.ErrDivisionNameRequired),
		errors.Is(err, services.ErrInvalidBracketType),
		errors.Is(err, services.ErrCourtLabelRequired),
		errors.Is(err, services.ErrCourtTournamentMismatch),
		errors.Is(err, services.ErrCourtDivisionRestricted),
		errors.Is(err, services.ErrMatchTeamsIncomplete),
		errors.Is(err, services.ErrLogoInvalidContentType):
		badRequestResponse(w, r, err)

	case errors.Is(err, scheduling.ErrBracketLocked):
		forbiddenResponse(w, r, err.Error())

	case errors.Is(err, services.ErrUploaderNotConfigured):
		errorResponse(w, r, http.StatusNotImplemented, err.Error())

	case errors.Is(err, scheduling.ErrStorageUnavailable):
		serviceUnavailableResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}
