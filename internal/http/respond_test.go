package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONMessages(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "empty", body: "  \n", message: "Request body cannot be empty"},
		{name: "malformed", body: `{"title":`, message: "Malformed JSON payload"},
		{name: "string for int", body: `{"movieId":"x","title":"A","genres":[]}`, message: "Invalid value for field movieId"},
		{name: "number for string", body: `{"movieId":1,"title":5,"genres":[]}`, message: "Invalid value for field title"},
		{name: "object for list", body: `{"movieId":1,"title":"A","genres":{}}`, message: "Invalid value for field genres"},
		{name: "unknown field", body: `{"movieId":1,"budget":3}`, message: `Request body contains unknown field "budget"`},
		{name: "first unknown field", body: `{"zeta":1,"alpha":2}`, message: `Request body contains unknown field "alpha"`},
		{name: "case sensitive", body: `{"MovieID":1}`, message: `Request body contains unknown field "MovieID"`},
		{name: "null body", body: `null`, message: "Request body must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req movieCreateRequest
			err := decodeJSON([]byte(tt.body), &req)
			var reqErr *requestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("decodeJSON(%q) err = %v, want *requestError", tt.body, err)
			}
			if reqErr.status != http.StatusBadRequest || reqErr.message != tt.message {
				t.Fatalf("decodeJSON(%q) = %d %q, want 400 %q", tt.body, reqErr.status, reqErr.message, tt.message)
			}
		})
	}
}

func TestDecodeJSONNonObject(t *testing.T) {
	for _, body := range []string{`[1]`, `4`, `"x"`} {
		var req rateRequest
		err := decodeJSON([]byte(body), &req)
		var reqErr *requestError
		if !errors.As(err, &reqErr) || reqErr.status != http.StatusBadRequest {
			t.Fatalf("decodeJSON(%q) err = %v, want 400 requestError", body, err)
		}
	}
}

func TestDecodeJSONFills(t *testing.T) {
	var req moviePatchRequest
	if err := decodeJSON([]byte(`{"title":"New","genres":["Drama","War"]}`), &req); err != nil {
		t.Fatalf("decodeJSON: %v", err)
	}
	if req.Title == nil || *req.Title != "New" || req.Genres == nil || len(*req.Genres) != 2 || req.MovieID != nil {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	body := `{"title":"` + strings.Repeat("a", maxRequestBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()

	var dst moviePatchRequest
	err := decodeJSONBody(rec, req, &dst)
	respondDecodeError(rec, err)
	expectErrorCode(t, rec, http.StatusRequestEntityTooLarge, codeValidation)
}

func TestRatingValue(t *testing.T) {
	tests := []struct {
		raw     string
		value   float64
		problem string
	}{
		{raw: ``, problem: "rating is required"},
		{raw: `null`, problem: "rating is required"},
		{raw: ` 4.5 `, value: 4.5},
		{raw: `9`, value: 9},
		{raw: `"4"`, problem: "rating must be a number"},
		{raw: `[4]`, problem: "rating must be a number"},
	}
	for _, tt := range tests {
		got := ratingValue([]byte(tt.raw))
		if got.Problem != tt.problem || (tt.problem == "" && got.Value != tt.value) {
			t.Fatalf("ratingValue(%q) = %+v, want value %v problem %q", tt.raw, got, tt.value, tt.problem)
		}
	}
}
