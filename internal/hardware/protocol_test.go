package hardware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/swerve"
)

func TestParseLine(t *testing.T) {
	l, err := ParseLine(`{"type":"module","id":2,"distance":1.25,"angle":0.5,"speed":-0.3}`)
	require.NoError(t, err)
	assert.Equal(t, LineTypeModule, l.Type)
	require.NotNil(t, l.ID)
	assert.Equal(t, 2, *l.ID)
	assert.Equal(t, 1.25, l.Distance)
	assert.Equal(t, -0.3, l.Speed)

	l, err = ParseLine(`  {"type":"gyro","heading":-1.5}  `)
	require.NoError(t, err)
	assert.Equal(t, -1.5, l.Heading)
	assert.Zero(t, l.ResetSeq)

	l, err = ParseLine(`{"type":"gyro","heading":0.5,"reset_seq":3}`)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), l.ResetSeq)

	l, err = ParseLine(`{"type":"axes","x":0.1,"y":-0.5,"rot":0}`)
	require.NoError(t, err)
	assert.Equal(t, -0.5, l.Y)
}

func TestParseLine_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"banner", "motor board v2 ready"},
		{"truncated", `{"type":"gyro","heading":`},
		{"unknown type", `{"type":"battery","volts":12}`},
		{"module without id", `{"type":"module","distance":1}`},
		{"module id out of range", `{"type":"module","id":4}`},
		{"negative module id", `{"type":"module","id":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			assert.Error(t, err)
		})
	}

	_, err := ParseLine(`{"type":"module","id":7}`)
	assert.True(t, errors.Is(err, ErrUnknownModule))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "T 3 1.500000 -1.570796",
		FormatTarget(swerve.BackRight, swerve.ModuleState{Speed: 1.5, Angle: geom.FromDegrees(-90)}))
	assert.Equal(t, "G 2 3.141593", FormatGyroReset(2, geom.FromDegrees(180)))
}
