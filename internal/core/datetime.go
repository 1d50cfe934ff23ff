package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for calendar days.
	DateLayout = "2006-01-02"
	// DateTimeLayout is how timestamps are persisted (local time of the business).
	DateTimeLayout = "2006-01-02 15:04:05"
)

var (
	ErrInvalidDate = errors.New("fecha inválida")
	ErrInvalidTime = errors.New("hora inválida")
)

// ComposeDateTime joins a calendar day and an optional clock time into one
// instant in loc. fecha may also be a full RFC3339 timestamp, in which case
// hora is ignored and the instant is converted to loc.
func ComposeDateTime(fecha, hora string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	fecha = strings.TrimSpace(fecha)
	hora = strings.TrimSpace(hora)
	if fecha == "" {
		return time.Time{}, ErrInvalidDate
	}
	if ts, err := time.Parse(time.RFC3339, fecha); err == nil {
		return ts.In(loc), nil
	}
	day, err := time.ParseInLocation(DateLayout, fecha, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	if hora == "" {
		return day, nil
	}
	var clock time.Time
	switch strings.Count(hora, ":") {
	case 1:
		clock, err = time.Parse("15:04", hora)
	case 2:
		clock, err = time.Parse("15:04:05", hora)
	default:
		err = ErrInvalidTime
	}
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc), nil
}

// ComposeOrNow is ComposeDateTime with "now" as the default for an empty fecha.
func ComposeOrNow(fecha, hora string, loc *time.Location, now time.Time) (time.Time, error) {
	if strings.TrimSpace(fecha) == "" {
		if loc == nil {
			loc = time.UTC
		}
		return now.In(loc), nil
	}
	return ComposeDateTime(fecha, hora, loc)
}

// ParseDay parses a YYYY-MM-DD day in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// DateRange is a half-open [Desde, Hasta) interval of local timestamps.
// Zero bounds mean unbounded.
type DateRange struct {
	Desde time.Time
	Hasta time.Time
}

// DayRange returns the range covering the whole calendar day of t.
func DayRange(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return DateRange{Desde: start, Hasta: start.AddDate(0, 0, 1)}
}

// MonthRange returns the range covering a calendar month.
func MonthRange(year, month int, loc *time.Location) DateRange {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return DateRange{Desde: start, Hasta: start.AddDate(0, 1, 0)}
}

// ParseDateRange builds a range from inclusive YYYY-MM-DD bounds.
// Either side may be empty.
func ParseDateRange(desde, hasta string, loc *time.Location) (DateRange, error) {
	var r DateRange
	if strings.TrimSpace(desde) != "" {
		d, err := ParseDay(desde, loc)
		if err != nil {
			return r, err
		}
		r.Desde = d
	}
	if strings.TrimSpace(hasta) != "" {
		h, err := ParseDay(hasta, loc)
		if err != nil {
			return r, err
		}
		r.Hasta = h.AddDate(0, 0, 1)
	}
	if !r.Desde.IsZero() && !r.Hasta.IsZero() && !r.Hasta.After(r.Desde) {
		return r, errors.New("el rango de fechas está invertido")
	}
	return r, nil
}

// FormatDateTime renders t for persistence.
func FormatDateTime(t time.Time) string { return t.Format(DateTimeLayout) }

// ParseDateTime reads a persisted timestamp back in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateTimeLayout, s, loc)
}
