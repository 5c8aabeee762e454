package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDevice_Drift_StaysWithinBounds(t *testing.T) {
	req := require.New(t)
	device := Device{ID: "1", SignalStrength: 85}

	// A large negative drift bottoms out at the noise floor
	device.Drift(-200)
	req.Equal(SignalFloor, device.SignalStrength)

	// A large positive drift caps at the ceiling
	device.Drift(500)
	req.Equal(SignalCeil, device.SignalStrength)

	// A small drift inside the band applies as-is
	device.Drift(-7)
	req.Equal(93, device.SignalStrength)
}

func TestClampSignal(t *testing.T) {
	req := require.New(t)
	req.Equal(SignalFloor, ClampSignal(0))
	req.Equal(SignalFloor, ClampSignal(19))
	req.Equal(20, ClampSignal(20))
	req.Equal(55, ClampSignal(55))
	req.Equal(SignalCeil, ClampSignal(101))
}
