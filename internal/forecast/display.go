package forecast

import (
	"fmt"
	"math"
	"time"
)

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Compass converts a direction in degrees to a 16-point compass abbreviation.
func Compass(deg float64) string {
	idx := int(math.RoundToEven(deg/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// FormatQuality renders a 0-1 quality score as "92%  (Great)".
func FormatQuality(quality *float64, text QualityText) string {
	if quality == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%  (%s)", *quality*100, text)
}

// QualityLabel formats the event's effective quality, or "N/A" when the
// event carries no quality.
func (e *Event) QualityLabel() string {
	q, ok := e.EffectiveQuality()
	if !ok {
		return FormatQuality(nil, e.QualityText)
	}
	return FormatQuality(&q, e.QualityText)
}

// FormatLocalTime renders t in a fixed UTC offset as "07:45 PM  (Jun 01)".
func FormatLocalTime(t time.Time, utcOffsetHours int) string {
	if t.IsZero() {
		return ""
	}
	zone := time.FixedZone(zoneName(utcOffsetHours), utcOffsetHours*3600)
	return t.In(zone).Format("03:04 PM  (Jan 02)")
}
