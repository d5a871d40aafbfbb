package service

import (
	"os"
	"testing"

	"prova_backend/pkg/logger"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}
