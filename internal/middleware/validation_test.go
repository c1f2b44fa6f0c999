package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "salesdash/internal/errors"
	api "salesdash/pkg/contracts/api/v1"
)

func newValidation() *ValidationMiddleware {
	return NewValidationMiddleware(quietLogger(), apierrors.NewErrorHandler(quietLogger(), false))
}

func TestValidateStruct_RenderRequest(t *testing.T) {
	valid := api.RenderRequest{
		Branches:      []string{"A"},
		ProductLines:  []string{},
		CustomerTypes: []string{"Member"},
		Start:         "2019-01-01",
		End:           "2019-03-30",
	}

	tests := []struct {
		name       string
		mutate     func(r *api.RenderRequest)
		wantFields []string
	}{
		{"valid with explicit empty set", func(r *api.RenderRequest) {}, nil},
		{"missing set", func(r *api.RenderRequest) { r.Branches = nil }, []string{"branches"}},
		{"blank member", func(r *api.RenderRequest) { r.Branches = []string{""} }, []string{"branches[0]"}},
		{"bad date", func(r *api.RenderRequest) { r.Start = "01/05/2019" }, []string{"start"}},
		{"missing end", func(r *api.RenderRequest) { r.End = "" }, []string{"end"}},
	}

	v := newValidation()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := v.ValidateStruct(req)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			details, ok := apiErr.Details.([]apierrors.ValidationError)
			require.True(t, ok)
			var fields []string
			for _, d := range details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	err := newValidation().ValidateStruct(api.RenderRequest{
		Branches:      []string{"A"},
		ProductLines:  []string{"Food"},
		CustomerTypes: []string{"Member"},
		Start:         "2019-13-01",
	})

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	details, ok := apiErr.Details.([]apierrors.ValidationError)
	require.True(t, ok)
	require.Len(t, details, 2)
	assert.Equal(t, "start must be a date in the format 2006-01-02", details[0].Message)
	assert.Equal(t, "end is required", details[1].Message)
}

func TestJSONBody(t *testing.T) {
	handler := newValidation().JSONBody(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))

	tests := []struct {
		name        string
		contentType string
		body        string
		wantCode    int
		wantError   string
	}{
		{"valid", "application/json", `{"branches":[]}`, http.StatusOK, ""},
		{"charset parameter", "application/json; charset=utf-8", `{}`, http.StatusOK, ""},
		{"missing content type", "", `{}`, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"wrong content type", "text/plain", `{}`, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{"truncated", "application/json", `{"branches":`, http.StatusBadRequest, "INVALID_JSON"},
		{"empty", "application/json", ``, http.StatusBadRequest, "INVALID_JSON"},
		{"too large", "application/json", `"` + strings.Repeat("a", DefaultMaxBodySize) + `"`, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantError == "" {
				assert.Equal(t, tt.body, rec.Body.String())
				return
			}
			assert.Contains(t, rec.Body.String(), tt.wantError)
		})
	}
}
