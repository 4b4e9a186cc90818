package queue

import (
	"sort"

	"golang.org/x/text/cases"

	"torrentstream/queueservice/internal/domain"
)

// Table columns in display order.
const (
	ColumnTitle = iota
	ColumnDetail
	ColumnSubDetail
	ColumnQuality
	ColumnProtocol
	ColumnTimeLeft
	ColumnProgress

	ColumnCount
)

var columnNames = []string{"title", "detail", "subDetail", "quality", "protocol", "timeLeft", "progress"}

// ColumnName returns the field name of a column, or "" when out of range.
func ColumnName(column int) string {
	if column < 0 || column >= len(columnNames) {
		return ""
	}
	return columnNames[column]
}

// ColumnIndex maps a field name to its column.
func ColumnIndex(name string) (int, bool) {
	for i, candidate := range columnNames {
		if candidate == name {
			return i, true
		}
	}
	return -1, false
}

type sortEntry struct {
	item domain.QueueItem
	key  string
}

// Sort orders items in place by column. String columns compare
// case-folded, progress compares numerically. Equal keys keep their
// relative order in both directions.
func Sort(items []domain.QueueItem, column int, dir domain.SortDir) {
	if column < 0 || column >= ColumnCount || len(items) < 2 {
		return
	}
	desc := dir == domain.SortDesc

	if column == ColumnProgress {
		sort.SliceStable(items, func(i, j int) bool {
			if desc {
				return items[i].Progress > items[j].Progress
			}
			return items[i].Progress < items[j].Progress
		})
		return
	}

	folder := cases.Fold()
	entries := make([]sortEntry, len(items))
	for i, item := range items {
		entries[i] = sortEntry{item: item, key: folder.String(columnValue(item, column))}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return entries[i].key > entries[j].key
		}
		return entries[i].key < entries[j].key
	})
	for i := range entries {
		items[i] = entries[i].item
	}
}

func columnValue(item domain.QueueItem, column int) string {
	switch column {
	case ColumnTitle:
		return item.Title
	case ColumnDetail:
		return item.Detail
	case ColumnSubDetail:
		return item.SubDetail
	case ColumnQuality:
		return item.Quality
	case ColumnProtocol:
		return string(item.Protocol)
	case ColumnTimeLeft:
		return item.TimeLeft
	default:
		return ""
	}
}
