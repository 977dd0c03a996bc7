package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmarsh/reelhaven/internal/models"
	pkghttp "github.com/davidmarsh/reelhaven/pkg/http"
)

type stubMFAService struct {
	requestErr error
	verified   bool
	lastCode   string
}

func (s *stubMFAService) RequestCode(ctx context.Context, email, origin string) error {
	return s.requestErr
}

func (s *stubMFAService) VerifyCode(ctx context.Context, email, origin, submitted string) bool {
	s.lastCode = submitted
	return s.verified
}

func TestMFAHandler_RequestCode_Accepted(t *testing.T) {
	handler := NewMFAHandler(&stubMFAService{}, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.RequestCode, "/auth/code/request", RequestCodeRequest{
		Email: "alice@example.com",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMFAHandler_RequestCode_Throttled(t *testing.T) {
	handler := NewMFAHandler(&stubMFAService{requestErr: models.ErrThrottled}, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.RequestCode, "/auth/code/request", RequestCodeRequest{
		Email: "alice@example.com",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMFAHandler_VerifyCode(t *testing.T) {
	stub := &stubMFAService{verified: true}
	handler := NewMFAHandler(stub, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.VerifyCode, "/auth/code/verify", VerifyCodeRequest{
		Email: "alice@example.com",
		Code:  "123456",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "123456", stub.lastCode)

	var resp VerifyCodeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Verified)
}

func TestMFAHandler_VerifyCode_Rejected(t *testing.T) {
	handler := NewMFAHandler(&stubMFAService{verified: false}, &pkghttp.IPConfig{})

	rec := postJSON(t, handler.VerifyCode, "/auth/code/verify", VerifyCodeRequest{
		Email: "alice@example.com",
		Code:  "000000",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMFAHandler_VerifyCode_MalformedCodeRejectedBeforeService(t *testing.T) {
	handler := NewMFAHandler(&stubMFAService{verified: true}, &pkghttp.IPConfig{})

	// Too short and non-numeric submissions never reach the service
	for _, code := range []string{"123", "abcdef", "1234567"} {
		rec := postJSON(t, handler.VerifyCode, "/auth/code/verify", VerifyCodeRequest{
			Email: "alice@example.com",
			Code:  code,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "code %q", code)
	}
}
