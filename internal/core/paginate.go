package core

// PageCount returns the number of pages for total rows at size per page.
// There is always at least one page.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// ClampPage clamps a zero-based page into [0, max(0, ceil(total/size)-1)].
func ClampPage(page, total, size int) int {
	if page < 0 {
		return 0
	}
	if last := PageCount(total, size) - 1; page > last {
		return last
	}
	return page
}

// Page is one paginated slice of the display sequence plus the pinned rows
// rendered around it.
type Page struct {
	Top        []DisplayRow `json:"top"`
	Rows       []DisplayRow `json:"rows"`
	Bottom     []DisplayRow `json:"bottom"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalRows  int          `json:"totalRows"`
	TotalPages int          `json:"totalPages"`
}

// All returns the rows in render order: pinned top, page slice, pinned bottom.
func (p Page) All() []DisplayRow {
	out := make([]DisplayRow, 0, len(p.Top)+len(p.Rows)+len(p.Bottom))
	out = append(out, p.Top...)
	out = append(out, p.Rows...)
	return append(out, p.Bottom...)
}

// Paginate returns the slice [page*size, (page+1)*size) of rows after removing
// pinned rows from the sequence. Pinned rows are matched by Row.ID, which
// differs from the display id of tree nodes keyed on another field. page is
// clamped. size <= 0 disables paging.
func Paginate(rows []DisplayRow, page, size int, top, bottom []DisplayRow) Page {
	pinned := make(map[string]bool, len(top)+len(bottom))
	for _, r := range top {
		pinned[r.Row.ID] = true
	}
	for _, r := range bottom {
		pinned[r.Row.ID] = true
	}

	body := rows
	if len(pinned) > 0 {
		body = make([]DisplayRow, 0, len(rows))
		for _, r := range rows {
			if r.Kind == RowGroup || !pinned[r.Row.ID] {
				body = append(body, r)
			}
		}
	}

	total := len(body)
	page = ClampPage(page, total, size)
	slice := body
	if size > 0 {
		start := page * size
		end := start + size
		if start > total {
			start = total
		}
		if end > total {
			end = total
		}
		slice = body[start:end]
	}

	return Page{
		Top:        markPinned(top, PinTop),
		Rows:       slice,
		Bottom:     markPinned(bottom, PinBottom),
		Page:       page,
		PageSize:   size,
		TotalRows:  total,
		TotalPages: PageCount(total, size),
	}
}

func markPinned(rows []DisplayRow, side PinSide) []DisplayRow {
	out := make([]DisplayRow, len(rows))
	for i, r := range rows {
		r.Pinned = side
		out[i] = r
	}
	return out
}
