package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	"github.com/allisson/docvault/internal/documents/http/dto"
	"github.com/allisson/docvault/internal/documents/usecase/mocks"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

func setupDocumentRouter(t *testing.T, maxUploadBytes int64) (*gin.Engine, *mocks.MockDocumentUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockDocumentUseCase{}
	handler := NewDocumentHandler(mockUseCase, maxUploadBytes, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	router.POST("/v1/documents", handler.UploadHandler)
	router.GET("/v1/documents", handler.ListHandler)
	router.GET("/v1/documents/:id", handler.GetHandler)
	router.GET("/v1/documents/:id/content", handler.ContentHandler)
	router.POST("/v1/documents/:id/quarantine-override", handler.QuarantineOverrideHandler)
	return router, mockUseCase
}

func TestDocumentHandler_UploadHandler(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		router, mockUseCase := setupDocumentRouter(t, 1024)
		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Upload", mock.Anything, &documentDomain.UploadInput{
			Filename:    "notes.txt",
			ContentType: "text/plain",
			Content:     []byte("hello"),
		}).Return(&documentDomain.Document{ID: id, Filename: "notes.txt", ScanStatus: scanDomain.StatusQueued}, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/documents?filename=notes.txt", bytes.NewBufferString("hello"))
		req.Header.Set("Content-Type", "text/plain")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response dto.DocumentResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, id.String(), response.ID)
		assert.Equal(t, "queued", response.ScanStatus)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("multipart", func(t *testing.T) {
		router, mockUseCase := setupDocumentRouter(t, 1024)
		mockUseCase.On("Upload", mock.Anything, mock.MatchedBy(func(in *documentDomain.UploadInput) bool {
			return in.Filename == "report.csv" && string(in.Content) == "a,b\n1,2\n"
		})).Return(&documentDomain.Document{ID: uuid.Must(uuid.NewV7())}, nil).Once()

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "report.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte("a,b\n1,2\n"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("body over the limit", func(t *testing.T) {
		router, mockUseCase := setupDocumentRouter(t, 8)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewReader(make([]byte, 128*1024)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})
}

func TestDocumentHandler_ContentHandler(t *testing.T) {
	t.Run("servable", func(t *testing.T) {
		router, mockUseCase := setupDocumentRouter(t, 0)
		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Open", mock.Anything, id).
			Return(&documentDomain.Document{ID: id, Filename: "a.txt", ContentType: "text/plain"}, []byte("plain"), nil).
			Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id.String()+"/content", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "plain", w.Body.String())
		assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=a.txt`)
	})

	t.Run("quarantined", func(t *testing.T) {
		router, mockUseCase := setupDocumentRouter(t, 0)
		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Open", mock.Anything, id).Return(nil, nil, documentDomain.ErrDocumentNotServable).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id.String()+"/content", nil))

		assert.Equal(t, http.StatusLocked, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		router, _ := setupDocumentRouter(t, 0)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/documents/nope/content", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestDocumentHandler_GetHandler(t *testing.T) {
	router, mockUseCase := setupDocumentRouter(t, 0)
	id := uuid.Must(uuid.NewV7())
	mockUseCase.On("Get", mock.Anything, id).Return(nil, documentDomain.ErrDocumentNotFound).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_ListHandler(t *testing.T) {
	router, mockUseCase := setupDocumentRouter(t, 0)
	mockUseCase.On("List", mock.Anything, 10, 5).
		Return([]*documentDomain.Document{{ID: uuid.Must(uuid.NewV7())}}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/documents?offset=10&limit=5", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var response dto.ListDocumentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Data, 1)
}

func TestDocumentHandler_QuarantineOverrideHandler(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		router, mockUseCase := setupDocumentRouter(t, 0)
		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("GrantQuarantineOverride", mock.Anything, id, "false positive", 30*time.Minute).
			Return(nil).Once()

		body, _ := json.Marshal(map[string]any{"reason": " false positive ", "ttl_minutes": 30})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/documents/"+id.String()+"/quarantine-override", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("missing ttl", func(t *testing.T) {
		router, _ := setupDocumentRouter(t, 0)
		id := uuid.Must(uuid.NewV7())

		body, _ := json.Marshal(map[string]any{"reason": "x"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/documents/"+id.String()+"/quarantine-override", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
