package harness

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseDevices(t *testing.T) {
	tests := map[string][]int{
		"0":            {0},
		"0,1":          {0, 1},
		" 3 , 1 ":      {3, 1},
		"0-3":          {0, 1, 2, 3},
		"0,2-4,7":      {0, 2, 3, 4, 7},
		"5-5":          {5},
		"0,1,2,3,4-7,": {0, 1, 2, 3, 4, 5, 6, 7},
	}

	for s, expected := range tests {
		devices, err := ParseDevices(s)
		require.NoError(t, err, s)
		require.Equal(t, expected, devices, s)
	}
}

func TestParseDevicesInvalid(t *testing.T) {
	for _, s := range []string{"", " , ", "a", "1,b", "4-2", "0-", "1,1", "0-3,2", "-1"} {
		_, err := ParseDevices(s)
		require.True(t, errors.Is(err, ErrInvalidArgument), "'%s' should be invalid", s)
	}
}

func TestParseShape(t *testing.T) {
	tests := map[string][]int{
		"10":         {10},
		"1000000x10": {1000000, 10},
		"2X3x4":      {2, 3, 4},
		" 8 x 8 ":    {8, 8},
	}

	for s, expected := range tests {
		shape, err := ParseShape(s)
		require.NoError(t, err, s)
		require.Equal(t, expected, shape, s)
	}
}

func TestParseShapeInvalid(t *testing.T) {
	for _, s := range []string{"", "x", "10x", "10x0", "-1x2", "ax2"} {
		_, err := ParseShape(s)
		require.True(t, errors.Is(err, ErrInvalidArgument), "'%s' should be invalid", s)
	}
}
