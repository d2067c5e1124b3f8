package db

import (
	"testing"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}
