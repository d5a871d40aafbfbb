package util

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"prova_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFailFromErrorMapsTaxonomy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()

	cases := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrInvalidTransition, http.StatusConflict},
		{ErrCodeSpaceExhausted, http.StatusServiceUnavailable},
		{ErrDeliveryCodeMismatch, http.StatusUnprocessableEntity},
		{ErrInvalidScheduleConfig, http.StatusBadRequest},
		{ErrApplicationNotJoinable, http.StatusBadRequest},
		{errors.New("driver: bad connection"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		FailFromError(c, tc.err)

		assert.Equal(t, tc.status, w.Code, "error %v", tc.err)
	}
}

func TestFailFromErrorWrappedSentinel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FailFromError(c, fmt.Errorf("starting application 9: %w", ErrInvalidTransition))

	assert.Equal(t, http.StatusConflict, w.Code)
}
