package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat(t *testing.T) {
	testCases := []struct {
		name    string
		input   any
		want    *float64
		wantErr bool
	}{
		{"json number", 28.4, ptr(28.4), false},
		{"numeric string", " 77.3 ", ptr(77.3), false},
		{"int", 5, ptr(5.0), false},
		{"nil", nil, nil, false},
		{"empty string", "", nil, false},
		{"garbage", "north", nil, true},
		{"bool", true, nil, true},
		{"nan string", "NaN", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Float(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInt(t *testing.T) {
	got, err := Int(800.0)
	require.NoError(t, err)
	assert.Equal(t, 800, *got)

	got, err = Int("1450.7")
	require.NoError(t, err)
	assert.Equal(t, 1450, *got)

	got, err = Int(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = Int("fast")
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	testCases := []struct {
		input   any
		want    *bool
		wantErr bool
	}{
		{true, boolPtr(true), false},
		{false, boolPtr(false), false},
		{1.0, boolPtr(true), false},
		{0.0, boolPtr(false), false},
		{"ON", boolPtr(true), false},
		{"false", boolPtr(false), false},
		{nil, nil, false},
		{2.0, nil, true},
		{"maybe", nil, true},
	}

	for _, tc := range testCases {
		got, err := Bool(tc.input)
		if tc.wantErr {
			assert.Error(t, err, "input %v", tc.input)
			continue
		}
		require.NoError(t, err, "input %v", tc.input)
		assert.Equal(t, tc.want, got, "input %v", tc.input)
	}
}

func TestTimestamp(t *testing.T) {
	want := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		input any
	}{
		{"rfc3339 utc", "2024-06-01T08:30:00Z"},
		{"rfc3339 offset", "2024-06-01T14:00:00+05:30"},
		{"rfc3339 nano", "2024-06-01T08:30:00.000Z"},
		{"zone-less", "2024-06-01 08:30:00"},
		{"epoch millis number", float64(want.UnixMilli())},
		{"epoch millis string", "1717230600000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Timestamp(tc.input)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, want.Equal(*got), "got %v", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	got, err := Timestamp(nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = Timestamp("yesterday")
	assert.Error(t, err)
}

func ptr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool   { return &v }
