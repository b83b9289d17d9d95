package core

// PageInfo summarizes pagination.
type PageInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalRows  int  `json:"totalRows"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}

// SetPage moves to page, clamped to the valid range.
func (g *Grid) SetPage(page int) error {
	return g.Dispatch(SetPage{Page: page})
}

// SetPageSize changes the page size; 0 disables paging.
func (g *Grid) SetPageSize(size int) error {
	return g.Dispatch(SetPageSize{Size: size})
}

func (g *Grid) NextPage() error     { return g.SetPage(g.State().Page() + 1) }
func (g *Grid) PreviousPage() error { return g.SetPage(g.State().Page() - 1) }
func (g *Grid) FirstPage() error    { return g.SetPage(0) }

func (g *Grid) LastPage() error {
	st := g.State()
	return g.SetPage(st.PageCount() - 1)
}

// PageInfo returns the current pagination summary.
func (g *Grid) PageInfo() PageInfo {
	if !g.lock() {
		return PageInfo{}
	}
	defer g.unlock()
	if _, err := g.viewLocked(); err != nil {
		return PageInfo{}
	}
	st := g.store.Snapshot()
	pages := st.PageCount()
	return PageInfo{
		Page:       st.Page(),
		PageSize:   st.PageSize(),
		TotalRows:  st.RowCount(),
		TotalPages: pages,
		HasPrev:    st.Page() > 0,
		HasNext:    st.Page() < pages-1,
	}
}

// PageRows returns the rows of the current page in render order, pinned
// rows included.
func (g *Grid) PageRows() []DisplayRow {
	v, _ := g.View()
	return v.Page.All()
}
