package storage

import (
	"time"
)

type Mapping struct {
	ID          int64     `json:"id" db:"id"`
	ShortCode   string    `json:"short_code" db:"short_code"`
	TargetURL   string    `json:"target_url" db:"target_url"`
	Description *string   `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// MappingWithClicks is the list-view row shape: the mapping plus its total
// click count. Mappings with no clicks report a count of 0, never null.
type MappingWithClicks struct {
	Mapping
	ClickCount int64 `json:"click_count" db:"click_count"`
}

// DayCount is one day bucket of the click histogram. Date is a calendar
// date in UTC, formatted YYYY-MM-DD.
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Stats holds aggregate click statistics for one mapping. Total always
// reflects the true number of recorded clicks. ByDay is sparse (days with
// zero clicks are omitted), sorted most-recent-day first, and holds at most
// 30 entries.
type Stats struct {
	Total int64      `json:"total"`
	ByDay []DayCount `json:"byDay"`
}
