package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/silverstate/nvsos-api/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEntityService struct {
	record     *models.EntityRecord
	fileNumber string
}

func (s *stubEntityService) GetEntity(ctx context.Context, fileNumber, requestID string) *models.EntityRecord {
	s.fileNumber = fileNumber
	return s.record
}

func (s *stubEntityService) Health() map[string]interface{} { return map[string]interface{}{} }

func (s *stubEntityService) Close() error { return nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newEntityRouter(service *stubEntityService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewEntityHandler(service, testLogger())
	router.GET("/api/v1/entity/:fileNumber", handler.GetEntity)
	return router
}

func TestGetEntitySuccess(t *testing.T) {
	record := models.NewEntityRecord()
	name := "SILVER STATE HOLDINGS LLC"
	record.EntityInformation[models.FieldEntityName] = &name
	record.Metadata.FileNumberSearched = "E10281132020-8"

	service := &stubEntityService{record: record}
	router := newEntityRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entity/e10281132020-8", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// Handler cleans the path parameter before searching.
	assert.Equal(t, "E10281132020-8", service.fileNumber)

	var decoded models.EntityRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.True(t, decoded.Metadata.Success)
	assert.Equal(t, "SILVER STATE HOLDINGS LLC", *decoded.EntityInformation[models.FieldEntityName])
}

func TestGetEntityInvalidFileNumber(t *testing.T) {
	service := &stubEntityService{}
	router := newEntityRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entity/not-a-file-number", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, service.fileNumber, "invalid input must not reach the service")

	var response models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "INVALID_FILE_NUMBER", response.Code)
}

func TestGetEntityFailedAcquisition(t *testing.T) {
	record := models.NewFailedRecord("E10281132020-8", "req-1", errors.New("detail panel did not render"))
	service := &stubEntityService{record: record}
	router := newEntityRouter(service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entity/E10281132020-8", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var decoded models.EntityRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.False(t, decoded.Metadata.Success)
	assert.Equal(t, "detail panel did not render", decoded.Metadata.Error)
}
