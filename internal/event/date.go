package event

import "time"

// ParseDate parses the stored ISO event date ("2006-01-02").
// Returns time.Time{} (zero value) if the date is absent or malformed.
func ParseDate(isoDate string) time.Time {
	if isoDate == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsPast reports whether the event date has passed.
// Returns false if the date is unknown (safer default when filtering).
func (e *Event) IsPast() bool {
	parsed := ParseDate(e.Date)
	if parsed.IsZero() {
		return false
	}
	return parsed.Before(time.Now())
}

// Before orders two events by date for display. Events with a known date
// sort ahead of events without one; ties fall back to municipality then name.
func Before(a, b *Event) bool {
	dateA := ParseDate(a.Date)
	dateB := ParseDate(b.Date)

	if !dateA.IsZero() && !dateB.IsZero() && !dateA.Equal(dateB) {
		return dateA.Before(dateB)
	}
	if dateA.IsZero() != dateB.IsZero() {
		return !dateA.IsZero()
	}
	if a.Municipality != b.Municipality {
		return a.Municipality < b.Municipality
	}
	return a.Name < b.Name
}
