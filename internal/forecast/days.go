package forecast

import (
	"fmt"
	"math"
	"time"
)

// DayLabelLayout formats the local calendar day of a bucket.
const DayLabelLayout = "Monday, Jan 02 2006"

// UnknownDay labels events whose time could not be determined.
const UnknownDay = "Unknown"

// DayBucket pairs the sunrise and sunset of one local calendar day.
type DayBucket struct {
	Label   string
	Sunrise *Event
	Sunset  *Event
}

// GroupByDay groups events into per-day sunrise/sunset pairs in a fixed
// UTC offset. Days appear in the order they are first seen; events are not
// re-sorted. Events without model data are skipped and never create a day.
// A second event of the same type on the same day replaces the first.
func GroupByDay(events []Event, utcOffsetHours int) []DayBucket {
	zone := time.FixedZone(zoneName(utcOffsetHours), utcOffsetHours*3600)

	var buckets []DayBucket
	index := make(map[string]int)

	for i := range events {
		ev := events[i]
		if !ev.ModelData {
			continue
		}

		label := UnknownDay
		if !ev.Time.IsZero() {
			label = ev.Time.In(zone).Format(DayLabelLayout)
		}

		pos, ok := index[label]
		if !ok {
			buckets = append(buckets, DayBucket{Label: label})
			pos = len(buckets) - 1
			index[label] = pos
		}

		switch ev.Type {
		case EventSunrise:
			buckets[pos].Sunrise = &ev
		case EventSunset:
			buckets[pos].Sunset = &ev
		}
	}

	return buckets
}

// UTCOffsetForLongitude approximates the UTC offset in whole hours from a
// longitude (15° per hour). Political time zones are ignored.
func UTCOffsetForLongitude(lng float64) int {
	return int(math.RoundToEven(lng / 15))
}

func zoneName(offset int) string {
	if offset >= 0 {
		return fmt.Sprintf("UTC+%d", offset)
	}
	return fmt.Sprintf("UTC%d", offset)
}
