//go:build unit
// +build unit

package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecorderWithNilProviderIsNoop(t *testing.T) {
	rec, err := NewRecorder(nil)
	require.NoError(t, err)
	rec.RecordGate(context.Background(), "H")
	rec.RecordMeasurement(context.Background(), 1)
	rec.RecordRun(context.Background(), true)
}
