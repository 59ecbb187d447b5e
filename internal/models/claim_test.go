package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClaimKeyFor_UsesObservationID(t *testing.T) {
	farmerID := uuid.New()
	obs := &Observation{ID: "obs-42", MeasuredAt: 1757000000}

	key := ClaimKeyFor(farmerID, obs)

	assert.Equal(t, farmerID.String()+":obs-42", key)
}

func TestClaimKeyFor_FallsBackToTimestamp(t *testing.T) {
	farmerID := uuid.New()
	obs := &Observation{MeasuredAt: 1757000000}

	key := ClaimKeyFor(farmerID, obs)

	assert.Equal(t, farmerID.String()+":1757000000", key)
}

func TestClaimKeyFor_Deterministic(t *testing.T) {
	farmerID := uuid.New()
	obs := &Observation{ID: "obs-42"}

	assert.Equal(t, ClaimKeyFor(farmerID, obs), ClaimKeyFor(farmerID, obs))
}

func TestClaimStatus_IsTerminal(t *testing.T) {
	assert.False(t, ClaimPending.IsTerminal())
	assert.True(t, ClaimPaid.IsTerminal())
	assert.True(t, ClaimFailed.IsTerminal())
	assert.True(t, ClaimRejected.IsTerminal())
}

func TestUpdateThresholdsRequest_Validate(t *testing.T) {
	min := 50.0
	max := 10.0
	req := &UpdateThresholdsRequest{
		Rainfall: &MetricBound{Min: &min, Max: &max},
	}

	problems := req.Validate()

	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "rainfall")
}

func TestUpdateThresholdsRequest_ValidBoundsPass(t *testing.T) {
	min := 10.0
	max := 50.0
	req := &UpdateThresholdsRequest{
		Rainfall:    &MetricBound{Min: &min, Max: &max},
		Temperature: &MetricBound{Max: &max},
	}

	assert.Empty(t, req.Validate())
}
