package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   ErrorType
	}{
		{"custom 400", New400Error("title is required"), http.StatusBadRequest, ErrorTypeBadRequest},
		{"wrapped not found", fmt.Errorf("load podcast: %w", ErrNotFound), http.StatusNotFound, ErrorTypeNotFound},
		{"forbidden sentinel", ErrForbidden, http.StatusForbidden, ErrorTypeForbidden},
		{"unauthorized sentinel", ErrUnauthorized, http.StatusUnauthorized, ErrorTypeUnauthorized},
		{"not configured", fmt.Errorf("podcasts: %w", ErrNotConfigured), http.StatusServiceUnavailable, ErrorTypeNotConfigured},
		{"validation sentinel", fmt.Errorf("%w: title is required", ErrValidation), http.StatusBadRequest, ErrorTypeBadRequest},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, ErrorTypeInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/podcasts", nil)

			HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body struct {
				Error struct {
					Type    ErrorType `json:"type"`
					Message string    `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Error.Type)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestFromErrorKeepsCustomMessage(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New404Error("Podcast not found"))
	custom := FromError(err)
	assert.Equal(t, "Podcast not found", custom.Message)
	assert.ErrorIs(t, custom, ErrNotFound)
}
