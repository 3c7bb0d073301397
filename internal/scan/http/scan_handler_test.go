package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	scanDomain "github.com/allisson/docvault/internal/scan/domain"
	"github.com/allisson/docvault/internal/scan/http/dto"
	"github.com/allisson/docvault/internal/scan/usecase/mocks"
)

func setupRouter(t *testing.T) (*gin.Engine, *mocks.MockScanUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockScanUseCase{}
	handler := NewScanHandler(mockUseCase, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	router.POST("/v1/scan-jobs/claim", handler.ClaimHandler)
	router.GET("/v1/scan-jobs/:doc_id", handler.GetHandler)
	router.POST("/v1/scan-jobs/:doc_id/result", handler.ResultHandler)
	router.POST("/v1/scan-jobs/:doc_id/skip", handler.SkipHandler)
	router.POST("/v1/batch/scan-heal", handler.HealHandler)
	return router, mockUseCase
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestScanHandler_ClaimHandler(t *testing.T) {
	t.Run("claims job", func(t *testing.T) {
		router, mockUseCase := setupRouter(t)
		docID := uuid.Must(uuid.NewV7())
		mockUseCase.On("ClaimNext", mock.Anything).
			Return(&scanDomain.Job{DocID: docID, Status: scanDomain.StatusRunning, Attempts: 1}, nil).Once()

		w := postJSON(t, router, "/v1/scan-jobs/claim", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.JobResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, docID.String(), response.DocID)
		assert.Equal(t, "running", response.Status)
	})

	t.Run("empty queue", func(t *testing.T) {
		router, mockUseCase := setupRouter(t)
		mockUseCase.On("ClaimNext", mock.Anything).Return(nil, scanDomain.ErrQueueEmpty).Once()

		w := postJSON(t, router, "/v1/scan-jobs/claim", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestScanHandler_ResultHandler(t *testing.T) {
	docID := uuid.Must(uuid.NewV7())

	t.Run("records verdict", func(t *testing.T) {
		router, mockUseCase := setupRouter(t)
		mockUseCase.On("Complete", mock.Anything, docID, scanDomain.StatusInfected, "").
			Return(&scanDomain.Job{DocID: docID, Status: scanDomain.StatusInfected}, nil).Once()

		w := postJSON(t, router, "/v1/scan-jobs/"+docID.String()+"/result", map[string]string{"result": "infected"})

		assert.Equal(t, http.StatusOK, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("job not running", func(t *testing.T) {
		router, mockUseCase := setupRouter(t)
		mockUseCase.On("Complete", mock.Anything, docID, scanDomain.StatusClean, "").
			Return(nil, scanDomain.ErrInvalidTransition).Once()

		w := postJSON(t, router, "/v1/scan-jobs/"+docID.String()+"/result", map[string]string{"result": "clean"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid result", func(t *testing.T) {
		router, mockUseCase := setupRouter(t)

		w := postJSON(t, router, "/v1/scan-jobs/"+docID.String()+"/result", map[string]string{"result": "maybe"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "Complete")
	})

	t.Run("invalid doc id", func(t *testing.T) {
		router, _ := setupRouter(t)

		w := postJSON(t, router, "/v1/scan-jobs/not-a-uuid/result", map[string]string{"result": "clean"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestScanHandler_HealHandler(t *testing.T) {
	t.Run("explicit parameters", func(t *testing.T) {
		router, mockUseCase := setupRouter(t)
		input := scanDomain.HealInput{RunningTimeout: 30 * time.Minute, MaxAttempts: 3, Limit: 10}
		mockUseCase.On("Heal", mock.Anything, input).
			Return(&scanDomain.HealResult{StaleRequeued: 1, MaxAttemptJobs: 2}, nil).Once()

		w := postJSON(t, router, "/v1/batch/scan-heal", map[string]int{
			"running_timeout_minutes": 30,
			"max_attempts":            3,
			"limit":                   10,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"stale_requeued":1,"error_requeued":0,"max_attempt_jobs":2}`, w.Body.String())
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		router, mockUseCase := setupRouter(t)
		mockUseCase.On("Heal", mock.Anything, scanDomain.HealInput{}).Return(&scanDomain.HealResult{}, nil).Once()

		w := postJSON(t, router, "/v1/batch/scan-heal", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}
