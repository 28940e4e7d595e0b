package client

import (
	"math"
	"strings"
	"time"

	"github.com/eventhub/apiserver/types"
)

// ItemsPerPage is the fixed page size for the browse listing.
const ItemsPerPage = 9

// FilterAll disables an individual filter dimension.
const FilterAll = "all"

// Date bucket values accepted by Filters.Date.
const (
	DateToday     = "today"
	DateTomorrow  = "tomorrow"
	DateThisWeek  = "thisWeek"
	DateThisMonth = "thisMonth"
)

// Filters is the compound browse filter. Each dimension is independent;
// empty or "all" disables it. Apply returns the intersection of all active
// predicates.
type Filters struct {
	Search   string
	Mode     string
	Type     string
	Location string
	Date     string
}

// Apply filters the full fetched set. Date bucket boundaries are computed
// from the start of the current local day at now.
func (f Filters) Apply(events []types.Event, now time.Time) []types.Event {
	result := make([]types.Event, 0, len(events))
	for _, event := range events {
		if f.matches(event, now) {
			result = append(result, event)
		}
	}
	return result
}

func (f Filters) matches(event types.Event, now time.Time) bool {
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		if !strings.Contains(strings.ToLower(event.EventName), search) &&
			!strings.Contains(strings.ToLower(event.Description), search) &&
			!strings.Contains(strings.ToLower(event.Location), search) {
			return false
		}
	}
	if active(f.Mode) && event.Mode != f.Mode {
		return false
	}
	if active(f.Type) && event.EventType != f.Type {
		return false
	}
	if active(f.Location) && event.Location != f.Location {
		return false
	}
	if active(f.Date) && !matchesDateBucket(event.DateTime, f.Date, now) {
		return false
	}
	return true
}

func active(value string) bool {
	return value != "" && value != FilterAll
}

func matchesDateBucket(eventDate time.Time, bucket string, now time.Time) bool {
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	switch bucket {
	case DateToday:
		return !eventDate.Before(today) && eventDate.Before(tomorrow)
	case DateTomorrow:
		dayAfter := today.AddDate(0, 0, 2)
		return !eventDate.Before(tomorrow) && eventDate.Before(dayAfter)
	case DateThisWeek:
		nextWeek := today.AddDate(0, 0, 7)
		return !eventDate.Before(today) && !eventDate.After(nextWeek)
	case DateThisMonth:
		nextMonth := today.AddDate(0, 1, 0)
		return !eventDate.Before(today) && !eventDate.After(nextMonth)
	default:
		return true
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Page is one fixed-size slice of the filtered set.
type Page struct {
	Events     []types.Event
	Number     int
	TotalPages int
}

// Paginate slices the filtered set into fixed-size pages. When the requested
// page exceeds the page count (after a filter change shrank the set), it
// resets to page 1.
func Paginate(events []types.Event, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = ItemsPerPage
	}

	totalPages := int(math.Ceil(float64(len(events)) / float64(pageSize)))
	if page < 1 || page > totalPages {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(events) {
		start = len(events)
	}
	if end > len(events) {
		end = len(events)
	}

	return Page{
		Events:     events[start:end],
		Number:     page,
		TotalPages: totalPages,
	}
}

// Locations returns the distinct event locations in first-seen order, used
// to populate the location filter choices.
func Locations(events []types.Event) []string {
	seen := make(map[string]struct{}, len(events))
	locations := make([]string, 0, len(events))
	for _, event := range events {
		if _, ok := seen[event.Location]; ok {
			continue
		}
		seen[event.Location] = struct{}{}
		locations = append(locations, event.Location)
	}
	return locations
}
