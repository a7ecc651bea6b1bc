package forecast_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sunsetscout/sunsetscout/internal/forecast"
)

func TestCompass(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{deg: 0, want: "N"},
		{deg: 22.5, want: "NNE"},
		{deg: 90, want: "E"},
		{deg: 180, want: "S"},
		{deg: 247.5, want: "WSW"},
		{deg: 270, want: "W"},
		{deg: 292, want: "WNW"},
		{deg: 350, want: "N"},
		{deg: 360, want: "N"},
		{deg: -22.5, want: "NNW"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, forecast.Compass(tt.deg), "deg=%v", tt.deg)
	}
}

func TestFormatQuality(t *testing.T) {
	assert.Equal(t, "92%  (Great)", forecast.FormatQuality(floatPtr(0.924), forecast.QualityGreat))
	assert.Equal(t, "0%  (Poor)", forecast.FormatQuality(floatPtr(0), forecast.QualityPoor))
	assert.Equal(t, "N/A", forecast.FormatQuality(nil, forecast.QualityGood))
}

func TestEvent_QualityLabel(t *testing.T) {
	tests := []struct {
		name string
		ev   forecast.Event
		want string
	}{
		{"percent wins", forecast.Event{Quality: floatPtr(0.5), QualityPercent: floatPtr(81), QualityText: forecast.QualityGood}, "81%  (Good)"},
		{"fraction", forecast.Event{Quality: floatPtr(0.33), QualityText: forecast.QualityFair}, "33%  (Fair)"},
		{"no quality", forecast.Event{QualityText: forecast.QualityPoor}, "N/A"},
		{"nothing at all", forecast.Event{}, "N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.QualityLabel())
		})
	}
}

func TestFormatLocalTime(t *testing.T) {
	ts := time.Date(2024, 6, 2, 2, 30, 0, 0, time.UTC)

	assert.Equal(t, "07:30 PM  (Jun 01)", forecast.FormatLocalTime(ts, -7))
	assert.Equal(t, "02:30 AM  (Jun 02)", forecast.FormatLocalTime(ts, 0))
	assert.Equal(t, "", forecast.FormatLocalTime(time.Time{}, 0))
}

func TestEvent_EffectiveQuality(t *testing.T) {
	ev := forecast.Event{Quality: floatPtr(0.9), QualityPercent: floatPtr(92)}
	q, ok := ev.EffectiveQuality()
	assert.True(t, ok)
	assert.InDelta(t, 0.92, q, 1e-9)

	ev = forecast.Event{Quality: floatPtr(0.55)}
	q, ok = ev.EffectiveQuality()
	assert.True(t, ok)
	assert.InDelta(t, 0.55, q, 1e-9)

	ev = forecast.Event{}
	_, ok = ev.EffectiveQuality()
	assert.False(t, ok)
	assert.Equal(t, 0.0, ev.QualityValue())
}

func TestErrors(t *testing.T) {
	remote := &forecast.RemoteError{StatusCode: 502}
	assert.Equal(t, "forecast provider returned status 502", remote.Error())

	remote = &forecast.RemoteError{StatusCode: 401, Message: "bad key"}
	assert.Equal(t, "forecast provider returned status 401: bad key", remote.Error())

	netErr := &forecast.NetworkError{Err: assert.AnError}
	assert.ErrorIs(t, netErr, forecast.ErrProviderUnavailable)
	assert.ErrorIs(t, netErr, assert.AnError)
}
