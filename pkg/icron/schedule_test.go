package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo_EveryDescriptor(t *testing.T) {
	ref := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@every 5m", ref)
	require.NoError(t, err)
	assert.Equal(t, "@every 5m", info.Expression)
	assert.Equal(t, ref.Add(5*time.Minute), info.Next)
	assert.Equal(t, 5*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfo_FiveFieldExpression(t *testing.T) {
	ref := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	// Every day at 13:00.
	info, err := GetTriggerInfo("0 13 * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 30*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfo_Invalid(t *testing.T) {
	_, err := GetTriggerInfo("not a schedule", time.Now())
	assert.Error(t, err)
}
