package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCronRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/recompute", CronToken(secret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestCronTokenAcceptsMatchingSecret(t *testing.T) {
	r := newCronRouter("topsecret")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recompute", nil)
	req.Header.Set(CronTokenHeader, "topsecret")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCronTokenRejectsWrongSecret(t *testing.T) {
	r := newCronRouter("topsecret")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recompute", nil)
	req.Header.Set(CronTokenHeader, "wrong")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCronTokenRejectsMissingHeader(t *testing.T) {
	r := newCronRouter("topsecret")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recompute", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCronTokenOpenWhenUnconfigured(t *testing.T) {
	r := newCronRouter("")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/recompute", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
