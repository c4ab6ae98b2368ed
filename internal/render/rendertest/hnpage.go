package rendertest

import (
	"fmt"
	"html"
	"strings"
)

// HNPage renders a page shaped like Hacker News /newest: each item takes
// three rows of the inner table (title, subtext, spacer) and, when
// moreHref is non-empty, a "More" link follows in row 3*len(ages)+2.
func HNPage(ages []string, moreHref string) string {
	var rows strings.Builder
	for i, age := range ages {
		fmt.Fprintf(&rows, `<tr class="athing" id="%d"><td class="title"><span class="titleline"><a href="item?id=%d">Story %d</a></span></td></tr>`, 1000-i, 1000-i, i+1)
		fmt.Fprintf(&rows, `<tr><td class="subtext"><span class="subline"><span class="score">1 point</span> <span class="age" title="2026-10-16T12:00:00"><a href="item?id=%d">%s</a></span></span></td></tr>`, 1000-i, html.EscapeString(age))
		rows.WriteString(`<tr class="spacer" style="height:5px"></tr>`)
	}
	if moreHref != "" {
		rows.WriteString(`<tr class="morespace" style="height:10px"></tr>`)
		fmt.Fprintf(&rows, `<tr><td class="title"><a href="%s" class="morelink" rel="next">More</a></td></tr>`, html.EscapeString(moreHref))
	}

	return `<html lang="en"><head><title>New Links | Hacker News</title></head><body><center>` +
		`<table id="hnmain" border="0" cellpadding="0" cellspacing="0" width="85%">` +
		`<tr><td><span class="pagetop"><b class="hnname"><a href="news">Hacker News</a></b></span></td></tr>` +
		`<tr id="pagespace" title="New Links" style="height:10px"></tr>` +
		`<tr><td><table border="0" cellpadding="0" cellspacing="0">` + rows.String() + `</table></td></tr>` +
		`</table></center></body></html>`
}

// SorryPage is the body Hacker News serves alongside a 403.
const SorryPage = `<html><body>Sorry.</body></html>`
