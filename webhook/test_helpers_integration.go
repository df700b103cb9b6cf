//go:build integration

package webhook

import (
	"fmt"
	"testing"
	"time"
)

// GenerateID generates a unique id for integration fixtures
func GenerateID(t *testing.T, prefix string, index int) string {
	t.Helper()
	return fmt.Sprintf("%s-%d-%d", prefix, index, time.Now().UnixNano())
}
