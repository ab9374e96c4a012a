package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/logging"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Error codes carried in errorResponse.Code.
const (
	codeNotFound     = "NOT_FOUND"
	codeValidation   = "VALIDATION_ERROR"
	codeConflict     = "CONFLICT"
	codeUnauthorized = "UNAUTHORIZED"
	codeRateLimited  = "RATE_LIMITED"
	codeInternal     = "INTERNAL_ERROR"
)

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// requestError is a body that could not be turned into a request schema.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(format string, args ...any) *requestError {
	return &requestError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

// decodeJSONBody reads a JSON object into the struct dst points at. Keys must
// match a field's json name exactly; each value is decoded on its own so a
// bad value is reported against its field.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return &requestError{status: http.StatusRequestEntityTooLarge, message: "Request body too large"}
		}
		return badRequest("Unable to read request body")
	}
	return decodeJSON(body, dst)
}

func decodeJSON(body []byte, dst interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("Request body cannot be empty")
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(body, &object); err != nil {
		var typeError *json.UnmarshalTypeError
		if errors.As(err, &typeError) {
			return badRequest("Request body must be a JSON object")
		}
		return badRequest("Malformed JSON payload")
	}
	if object == nil {
		return badRequest("Request body must be a JSON object")
	}

	target := reflect.ValueOf(dst).Elem()
	fields := jsonFields(target.Type())

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := fields[key]; !ok {
			return badRequest("Request body contains unknown field %q", key)
		}
	}

	for _, key := range keys {
		field := target.Field(fields[key]).Addr().Interface()
		if err := json.Unmarshal(object[key], field); err != nil {
			return badRequest("Invalid value for field %s", key)
		}
	}
	return nil
}

// jsonFields maps the json names of t's exported fields to their index.
func jsonFields(t reflect.Type) map[string]int {
	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		fields[name] = i
	}
	return fields
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logging.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// respondDomainError maps a catalog error onto its status code. Unclassified
// errors are logged and reported as 500 without their message.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			respondError(w, http.StatusNotFound, codeNotFound, derr.Message)
		case errors.Is(err, domain.ErrInvalidArgument):
			respondError(w, http.StatusBadRequest, codeValidation, derr.Message)
		case errors.Is(err, domain.ErrConflict):
			respondError(w, http.StatusConflict, codeConflict, derr.Message)
		case errors.Is(err, domain.ErrUnauthorized):
			respondError(w, http.StatusUnauthorized, codeUnauthorized, derr.Message)
		default:
			respondError(w, http.StatusBadRequest, codeValidation, derr.Message)
		}
		return
	}

	requestLogger(r).Error().Err(err).Msg("request failed")
	respondError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
}

func respondDecodeError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		respondError(w, reqErr.status, codeValidation, reqErr.message)
		return
	}
	respondError(w, http.StatusBadRequest, codeValidation, "Unable to parse request body")
}
