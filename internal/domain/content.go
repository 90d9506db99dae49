package domain

import "time"

// PropertyContent is the slow-changing display snapshot of one property.
// It is rebuilt from the upstream content endpoint and cached for a day.
type PropertyContent struct {
	ID            int64
	Name          string
	Stars         int
	Address       Address
	MultiLocation bool // property spans several sites; room addresses may override
	Images        []string
	Amenities     []string
	RoomTypes     []RoomTypeContent
}

type Address struct {
	Line string
	City string
}

func (a Address) Display() string {
	if a.Line == "" {
		return a.City
	}
	if a.City == "" {
		return a.Line
	}
	return a.Line + ", " + a.City
}

func (a Address) Empty() bool { return a.Line == "" && a.City == "" }

type RoomTypeContent struct {
	ID        string
	Name      string
	Images    []string
	Amenities []string
	Address   *Address // set only for multi-location properties
}

// RoomType returns the content room type with the given id, if present.
func (p PropertyContent) RoomType(id string) (RoomTypeContent, bool) {
	for _, rt := range p.RoomTypes {
		if rt.ID == id {
			return rt, true
		}
	}
	return RoomTypeContent{}, false
}

type City struct {
	ID      int64
	Name    string
	Country string
}

// ContentOrigin tags where a content lookup result came from.
type ContentOrigin int

const (
	// OriginCache: served from cache within its freshness window.
	OriginCache ContentOrigin = iota
	// OriginFetched: fetched from upstream during this call.
	OriginFetched
	// OriginStale: upstream fetch failed, previous cached value served.
	OriginStale
)

// ContentResult is a tagged content lookup outcome. Stale data is a
// first-class result, not an error.
type ContentResult struct {
	Content   PropertyContent
	Origin    ContentOrigin
	FetchedAt time.Time
}

func (r ContentResult) Cached() bool { return r.Origin == OriginCache }
func (r ContentResult) Stale() bool  { return r.Origin == OriginStale }
