package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	activeHQ := &RegistryRecord{ID: "hq1", ParentID: "p1", Status: StatusActive, Workforce: "21", Headquarters: true}
	closedHQ := &RegistryRecord{ID: "hq2", ParentID: "p2", Status: StatusClosed, Workforce: "12", Headquarters: true}
	blankHQ := &RegistryRecord{ID: "hq3", ParentID: "p3", Status: StatusActive, Headquarters: true}

	hq := NewHeadquartersIndex([]*RegistryRecord{activeHQ, closedHQ, blankHQ})
	r := NewResolver(hq, DefaultMaxDepth)

	tests := []struct {
		name string
		rec  *RegistryRecord
		want string
	}{
		{
			name: "active with bracket",
			rec:  &RegistryRecord{ID: "e1", Status: StatusActive, Workforce: "12"},
			want: "12",
		},
		{
			name: "active without bracket",
			rec:  &RegistryRecord{ID: "e2", Status: StatusActive},
			want: ToDetermine,
		},
		{
			name: "closed headquarters",
			rec:  closedHQ,
			want: Closed,
		},
		{
			name: "closed secondary inherits active headquarters",
			rec:  &RegistryRecord{ID: "e3", ParentID: "p1", Status: StatusClosed, Workforce: "03"},
			want: "21",
		},
		{
			name: "closed secondary of closed headquarters",
			rec:  &RegistryRecord{ID: "e4", ParentID: "p2", Status: StatusClosed},
			want: Closed,
		},
		{
			name: "closed secondary of headquarters without bracket",
			rec:  &RegistryRecord{ID: "e5", ParentID: "p3", Status: StatusClosed},
			want: ToDetermine,
		},
		{
			name: "closed secondary without headquarters",
			rec:  &RegistryRecord{ID: "e6", ParentID: "missing", Status: StatusClosed},
			want: ToDetermine,
		},
		{
			name: "unknown status",
			rec:  &RegistryRecord{ID: "e7", Status: StatusUnknown, Workforce: "12"},
			want: ToDetermine,
		},
		{
			name: "nil record",
			rec:  nil,
			want: ToDetermine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.rec))
		})
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	a := &RegistryRecord{ID: "A", ParentID: "pa", Status: StatusClosed}
	b := &RegistryRecord{ID: "B", ParentID: "pb", Status: StatusClosed}

	hq := NewHeadquartersIndex(nil)
	hq.Put("pa", b)
	hq.Put("pb", a)

	for _, depth := range []int{DefaultMaxDepth, 5, 100} {
		r := NewResolver(hq, depth)
		assert.Equal(t, ToDetermine, r.Resolve(a), "depth %d", depth)
		assert.Equal(t, ToDetermine, r.Resolve(b), "depth %d", depth)
	}
}

func TestResolveSelfReference(t *testing.T) {
	self := &RegistryRecord{ID: "S", ParentID: "ps", Status: StatusClosed}
	hq := NewHeadquartersIndex(nil)
	hq.Put("ps", self)

	assert.Equal(t, ToDetermine, NewResolver(hq, 10).Resolve(self))
}

func TestResolveDepthLimit(t *testing.T) {
	top := &RegistryRecord{ID: "T", ParentID: "pt", Status: StatusActive, Workforce: "31"}
	mid := &RegistryRecord{ID: "M", ParentID: "pm", Status: StatusClosed}
	leaf := &RegistryRecord{ID: "L", ParentID: "pl", Status: StatusClosed}

	hq := NewHeadquartersIndex(nil)
	hq.Put("pl", mid)
	hq.Put("pm", top)

	assert.Equal(t, ToDetermine, NewResolver(hq, 1).Resolve(leaf))
	assert.Equal(t, "31", NewResolver(hq, 2).Resolve(leaf))
	assert.Equal(t, ToDetermine, NewResolver(hq, 0).Resolve(mid))
	assert.Equal(t, ToDetermine, NewResolver(nil, 1).Resolve(mid))
}
