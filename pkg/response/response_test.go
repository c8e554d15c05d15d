package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"shiplabel-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestOK(t *testing.T) {
	c, w := setupContext()
	c.Set("request_id", "req-123")

	OK(c, gin.H{"balance": "96.00"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-123", resp.RequestID)
	assert.NotEmpty(t, resp.Timestamp)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "96.00", data["balance"])
}

func TestCreated(t *testing.T) {
	c, w := setupContext()

	Created(c, gin.H{"id": "tx-1"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// No request_id in context -> generated UUID
	assert.NotEmpty(t, resp.RequestID)
}

func TestError_AppError(t *testing.T) {
	c, w := setupContext()

	Error(c, apperror.ErrInsufficientBalance())

	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "LEDGER_001", resp.ErrorCode)
}

func TestError_WrappedAppError(t *testing.T) {
	c, w := setupContext()

	wrapped := fmt.Errorf("handler: %w", apperror.ErrInvalidSignature())
	Error(c, wrapped)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "HOOK_001", resp.ErrorCode)
}

func TestError_UnknownError(t *testing.T) {
	c, w := setupContext()

	Error(c, fmt.Errorf("something unexpected"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_000", resp.ErrorCode)
	// Internal detail must not leak
	assert.Equal(t, "Internal server error", resp.Message)
}

func TestReceived(t *testing.T) {
	c, w := setupContext()

	Received(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["received"])
	assert.NotEmpty(t, body["request_id"])
}
