package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type limitRequest struct {
	Limit int `json:"limit"`
}

func (r *limitRequest) Validate() error {
	if r.Limit < 0 {
		return assert.AnError
	}
	return nil
}

func TestBindAndValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		body      string
		wantOK    bool
		wantLimit int
	}{
		{"valid body", `{"limit": 5}`, true, 5},
		{"empty body uses zero value", ``, true, 0},
		{"malformed json", `{"limit":`, false, 0},
		{"fails validation", `{"limit": -1}`, false, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req limitRequest
			ok := BindAndValidate(c, &req, nil)

			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			} else {
				assert.Equal(t, tt.wantLimit, req.Limit)
			}
		})
	}
}
