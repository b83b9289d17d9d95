// Package templates renders the HTML preview of a grid session with templ
// components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Cell is one rendered cell.
type Cell struct {
	Field string
	Text  string
}

// RowView is one rendered row. Group rows carry a label and span the table.
type RowView struct {
	ID       string
	Kind     string
	Level    int
	Label    string
	Expanded bool
	Selected bool
	Pinned   string
	Cells    []Cell
}

// ColumnView is a header cell.
type ColumnView struct {
	Field  string
	Header string
	Width  float64
	Sort   string
	Pinned string
}

// GridParams is everything the preview page shows.
type GridParams struct {
	GridID      string
	Title       string
	Columns     []ColumnView
	Top         []RowView
	Rows        []RowView
	Bottom      []RowView
	Page        int
	TotalPages  int
	TotalRows   int
	QuickFilter string
	Overlay     string
}

// GridPage renders a full HTML document around GridTable.
func GridPage(p GridParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := p.Title
		if title == "" {
			title = "Grid " + p.GridID
		}
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title></head><body>`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if err := GridTable(p).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// GridTable renders the current page as a table fragment.
func GridTable(p GridParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<div class="grid" id="grid-%s">`, templ.EscapeString(p.GridID))
		if p.Overlay != "" {
			fmt.Fprintf(&b, `<div class="grid-overlay">%s</div>`, templ.EscapeString(p.Overlay))
		}
		if p.QuickFilter != "" {
			fmt.Fprintf(&b, `<p class="grid-search">Search: <q>%s</q></p>`, templ.EscapeString(p.QuickFilter))
		}

		b.WriteString(`<table><thead><tr>`)
		for _, c := range p.Columns {
			fmt.Fprintf(&b, `<th data-field="%s"`, templ.EscapeString(c.Field))
			if c.Width > 0 {
				fmt.Fprintf(&b, ` style="width:%gpx"`, c.Width)
			}
			if c.Sort != "" {
				fmt.Fprintf(&b, ` aria-sort="%s"`, ariaSort(c.Sort))
			}
			if c.Pinned != "" {
				fmt.Fprintf(&b, ` data-pinned="%s"`, templ.EscapeString(c.Pinned))
			}
			fmt.Fprintf(&b, `>%s</th>`, templ.EscapeString(c.Header))
		}
		b.WriteString(`</tr></thead>`)

		writeSection(&b, "grid-pinned-top", p.Top, len(p.Columns))
		writeSection(&b, "grid-body", p.Rows, len(p.Columns))
		writeSection(&b, "grid-pinned-bottom", p.Bottom, len(p.Columns))
		b.WriteString(`</table>`)

		if len(p.Rows) == 0 && len(p.Top) == 0 && len(p.Bottom) == 0 {
			b.WriteString(`<p class="grid-empty">No rows to show</p>`)
		}
		if p.TotalPages > 0 {
			fmt.Fprintf(&b, `<p class="grid-pager">Page %d of %d (%d rows)</p>`, p.Page+1, p.TotalPages, p.TotalRows)
		}
		b.WriteString(`</div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeSection(b *strings.Builder, class string, rows []RowView, span int) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, `<tbody class="%s">`, class)
	for _, r := range rows {
		fmt.Fprintf(b, `<tr data-id="%s" data-kind="%s"`, templ.EscapeString(r.ID), templ.EscapeString(r.Kind))
		if r.Level > 0 {
			fmt.Fprintf(b, ` data-level="%d"`, r.Level)
		}
		if r.Selected {
			b.WriteString(` aria-selected="true"`)
		}
		if r.Kind == "group" || r.Kind == "node" {
			fmt.Fprintf(b, ` aria-expanded="%t"`, r.Expanded)
		}
		b.WriteString(`>`)
		if r.Kind == "group" {
			fmt.Fprintf(b, `<td colspan="%d">%s</td>`, max(span, 1), templ.EscapeString(r.Label))
		} else {
			for _, c := range r.Cells {
				fmt.Fprintf(b, `<td data-field="%s">%s</td>`, templ.EscapeString(c.Field), templ.EscapeString(c.Text))
			}
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody>`)
}

func ariaSort(dir string) string {
	if dir == "desc" {
		return "descending"
	}
	return "ascending"
}

// ErrorAlert renders a user-facing error as an HTMX-swappable fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p>%s</p><p class="alert-action">%s</p><p class="alert-code">Code: %s</p></div>`,
			templ.EscapeString(message), templ.EscapeString(action), templ.EscapeString(code))
		return err
	})
}
