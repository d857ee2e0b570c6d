package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mverbruggen/rommelmarkt-zoeker/internal/event"
)

// SortOrder represents the available list sorting options.
type SortOrder string

const (
	SortByDate         SortOrder = "date"
	SortByMunicipality SortOrder = "gemeente"
	SortByName         SortOrder = "naam"
)

// sortEvents orders events by the requested key. Ties always fall back to
// the date ordering so output stays stable.
func sortEvents(events []*event.Event, order SortOrder) error {
	switch order {
	case SortByDate:
		sort.Slice(events, func(i, j int) bool {
			return event.Before(events[i], events[j])
		})
	case SortByMunicipality:
		sort.Slice(events, func(i, j int) bool {
			if events[i].Municipality != events[j].Municipality {
				return events[i].Municipality < events[j].Municipality
			}
			return event.Before(events[i], events[j])
		})
	case SortByName:
		sort.Slice(events, func(i, j int) bool {
			ni := strings.ToLower(events[i].Name)
			nj := strings.ToLower(events[j].Name)
			if ni != nj {
				return ni < nj
			}
			return event.Before(events[i], events[j])
		})
	default:
		return fmt.Errorf("invalid sort order: %s (must be 'date', 'gemeente', or 'naam')", order)
	}
	return nil
}
