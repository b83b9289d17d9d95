package core

import "sync"

// EventType names a grid event.
type EventType string

const (
	EventSortChanged       EventType = "sortChanged"
	EventFilterChanged     EventType = "filterChanged"
	EventPaginationChanged EventType = "paginationChanged"
	EventSelectionChanged  EventType = "selectionChanged"
	EventFocusChanged      EventType = "focusChanged"
	EventEditStarted       EventType = "cellEditStarted"
	EventEditStopped       EventType = "cellEditStopped"
	EventCellEditCommitted EventType = "cellEditCommitted"
	EventColumnsChanged    EventType = "columnsChanged"
	EventGroupingChanged   EventType = "groupingChanged"
	EventExpansionChanged  EventType = "expansionChanged"
	EventRowDrag           EventType = "rowDrag"
	EventRowDragEnd        EventType = "rowDragEnd"
	EventRowPinningChanged EventType = "rowPinningChanged"
	EventOverlayChanged    EventType = "overlayChanged"
	EventDataChanged       EventType = "dataChanged"
	EventViewportChanged   EventType = "viewportChanged"
	EventCellsRefreshed    EventType = "cellsRefreshed"
	EventLazyLoadFailed    EventType = "lazyLoadFailed"
	EventLazyLoadDiscarded EventType = "lazyLoadDiscarded"
	EventPresetSaved       EventType = "presetSaved"
	EventPresetLoaded      EventType = "presetLoaded"
	EventStateChanged      EventType = "stateChanged"
	EventDestroyed         EventType = "destroyed"
	EventAny               EventType = "*"
)

// Event is delivered to handlers registered with Grid.On.
type Event struct {
	Type       EventType `json:"type"`
	GridID     string    `json:"gridId"`
	Transition string    `json:"transition,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

// EventHandler receives grid events. Handlers run on the goroutine that
// caused the event, after the grid has released its lock, so they may call
// back into the grid.
type EventHandler func(Event)

type eventBus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[int]EventHandler
	nextID   int
}

func newEventBus() *eventBus {
	return &eventBus{handlers: make(map[EventType]map[int]EventHandler)}
}

func (b *eventBus) on(t EventType, h EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if b.handlers[t] == nil {
		b.handlers[t] = make(map[int]EventHandler)
	}
	b.handlers[t][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[t], id)
		})
	}
}

func (b *eventBus) emit(e Event) {
	b.mu.RLock()
	var hs []EventHandler
	for _, t := range []EventType{e.Type, EventAny} {
		for id := 0; id < b.nextID; id++ {
			if h, ok := b.handlers[t][id]; ok {
				hs = append(hs, h)
			}
		}
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(e)
	}
}

func (b *eventBus) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType]map[int]EventHandler)
}

// eventFor returns the event announcing a transition.
func eventFor(t Transition) EventType {
	switch t.(type) {
	case SetSort, ToggleSort, ClearSort:
		return EventSortChanged
	case SetFilter, ClearFilter, ClearAllFilters, SetFilterModel, SetQuickFilter:
		return EventFilterChanged
	case SetPage, SetPageSize, SetRowCount:
		return EventPaginationChanged
	case ToggleRowSelection, SelectRange, SelectAll, SetSelection, ClearSelection:
		return EventSelectionChanged
	case StartEdit:
		return EventEditStarted
	case CommitEdit, CancelEdit:
		return EventEditStopped
	case SetFocus, ClearFocus:
		return EventFocusChanged
	case MoveColumn, SetColumnOrder, ResizeColumn, PinColumn, SetColumnVisible, ResetColumns, ApplyColumnState:
		return EventColumnsChanged
	case AddGroupField, RemoveGroupField, MoveGroupField, SetGroupBy, ClearGrouping:
		return EventGroupingChanged
	case ToggleGroup, SetGroupsExpanded, CollapseAllGroups,
		ToggleNode, SetNodeExpanded, ExpandAllNodes, CollapseAllNodes, SetExpandedNodes, SetNodeLoading:
		return EventExpansionChanged
	case StartDrag, UpdateDrag:
		return EventRowDrag
	case EndDrag:
		return EventRowDragEnd
	case PinRow, UnpinRow, SetPinLimits:
		return EventRowPinningChanged
	case SetOverlay:
		return EventOverlayChanged
	case ResetData:
		return EventDataChanged
	case applyPreset:
		return EventPresetLoaded
	}
	return EventStateChanged
}
