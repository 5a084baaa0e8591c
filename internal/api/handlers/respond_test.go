package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"aidchain/internal/errs"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"validation", &errs.ValidationError{Field: "amount", Reason: "must be positive"}, http.StatusBadRequest, false},
		{"not found", &errs.NotFoundError{Kind: "campaign", ID: "x"}, http.StatusNotFound, false},
		{"chain rejection", &errs.ChainError{Op: "submit", Code: "tx_failed"}, http.StatusUnprocessableEntity, false},
		{"network", &errs.NetworkError{Op: "submit", Err: errors.New("timeout")}, http.StatusBadGateway, true},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			if tt.retryable {
				assert.Contains(t, w.Body.String(), `"retryable":true`)
			} else {
				assert.Contains(t, w.Body.String(), `"retryable":false`)
			}
		})
	}
}
