package handler

import (
	"github.com/sunsetscout/sunsetscout/internal/api/models"
	"github.com/sunsetscout/sunsetscout/internal/forecast"
)

func eventView(ev *forecast.Event, utcOffsetHours int) *models.EventView {
	if ev == nil {
		return nil
	}

	view := &models.EventView{
		Type:           string(ev.Type),
		Time:           models.TimestampPtr(ev.Time),
		Quality:        ev.Quality,
		QualityPercent: ev.QualityPercent,
		QualityText:    string(ev.QualityText),
		QualityDisplay: ev.QualityLabel(),
		CloudCover:     ev.CloudCover,
		Direction:      ev.Direction,
		GoldenHour:     intervalView(ev.Magics.GoldenHour),
		BlueHour:       intervalView(ev.Magics.BlueHour),
	}
	if !ev.Time.IsZero() {
		view.LocalTime = forecast.FormatLocalTime(ev.Time, utcOffsetHours)
	}
	if ev.Direction != nil {
		view.Compass = forecast.Compass(*ev.Direction)
	}
	return view
}

func intervalView(iv *forecast.Interval) *models.IntervalView {
	if iv == nil {
		return nil
	}
	return &models.IntervalView{
		Start: models.Timestamp(iv.Start),
		End:   models.Timestamp(iv.End),
	}
}

func dayViews(days []forecast.DayBucket, utcOffsetHours int) []models.DayForecast {
	out := make([]models.DayForecast, 0, len(days))
	for _, day := range days {
		out = append(out, models.DayForecast{
			Label:   day.Label,
			Sunrise: eventView(day.Sunrise, utcOffsetHours),
			Sunset:  eventView(day.Sunset, utcOffsetHours),
		})
	}
	return out
}
