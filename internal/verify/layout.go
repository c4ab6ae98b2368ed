package verify

import (
	"strconv"
	"strings"
)

// RowPlaceholder is replaced by the 1-based table row in ItemTemplate.
const RowPlaceholder = "{row}"

// Layout locates timestamp elements on a rendered page. Item pos (0-based)
// of a page lives in table row FirstRow + pos*RowStride.
type Layout struct {
	ItemTemplate string
	FirstRow     int
	RowStride    int
	PageSize     int
}

// HackerNewsLayout is the /newest page: 30 items, three rows per item, the
// first age span in row 2.
func HackerNewsLayout() Layout {
	return Layout{
		ItemTemplate: "#hnmain > tbody > tr:nth-child(3) > td > table > tbody > tr:nth-child({row}) > td.subtext > span > span.age",
		FirstRow:     2,
		RowStride:    3,
		PageSize:     30,
	}
}

// HackerNewsNextSelector is the "More" link below the 30th item.
const HackerNewsNextSelector = "#hnmain > tbody > tr:nth-child(3) > td > table > tbody > tr:nth-child(92) > td.title > a"

// ItemSelector returns the selector for position pos on the current page.
func (l Layout) ItemSelector(pos int) string {
	row := l.FirstRow + pos*l.RowStride
	return strings.ReplaceAll(l.ItemTemplate, RowPlaceholder, strconv.Itoa(row))
}

// Selectors returns the selectors to read from the current page given how
// many items are already processed: min(PageSize, target-processed) of
// them, in page order.
func (l Layout) Selectors(processed, target int) []string {
	n := min(l.PageSize, target-processed)
	if n <= 0 {
		return nil
	}
	selectors := make([]string, n)
	for i := range selectors {
		selectors[i] = l.ItemSelector(i)
	}
	return selectors
}
