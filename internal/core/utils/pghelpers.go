package utils

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ToText converts a domain's primitive string to a pgtype.Text.
// An empty string is considered invalid (NULL).
func ToText(s string) pgtype.Text {
	return pgtype.Text{
		String: s,
		Valid:  s != "",
	}
}

// FromText converts a pgtype.Text to a domain's primitive string.
// A NULL value is converted to an empty string ("").
func FromText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// ToDate converts a time to a pgtype.Date holding its UTC calendar day.
// The zero time is considered invalid (NULL).
func ToDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	t = t.UTC()
	return pgtype.Date{
		Time:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Valid: true,
	}
}

// FromDate converts a pgtype.Date to a UTC time. NULL becomes the zero time.
func FromDate(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return d.Time.UTC()
}

// ToTimestamptz converts a time to a pgtype.Timestamptz.
func ToTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: !t.IsZero(),
	}
}
