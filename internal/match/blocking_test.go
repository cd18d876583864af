package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketKey(t *testing.T) {
	tests := []struct {
		postal string
		want   string
		ok     bool
	}{
		{"75001", "75", true},
		{" 69002 ", "69", true},
		{"2A004", "2A", true},
		{"75", "75", true},
		{"7", "", false},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.postal, func(t *testing.T) {
			got, ok := BucketKey(tt.postal)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlockingIndex(t *testing.T) {
	paris := &RegistryRecord{ID: "1", PostalCode: "75001", Status: StatusActive}
	noPostal := &RegistryRecord{ID: "2", PostalCode: "", Status: StatusActive}
	short := &RegistryRecord{ID: "3", PostalCode: "7", Status: StatusActive}
	closed := &RegistryRecord{ID: "4", PostalCode: "75002", Status: StatusClosed}
	unknown := &RegistryRecord{ID: "5", PostalCode: "75003", Status: StatusUnknown}
	paris2 := &RegistryRecord{ID: "6", PostalCode: "75010", Status: StatusActive}
	lyon := &RegistryRecord{ID: "7", PostalCode: "69001", Status: StatusActive}

	idx := NewBlockingIndex([]*RegistryRecord{paris, noPostal, short, closed, unknown, nil, paris2, lyon})

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 3, idx.Size())
	assert.Equal(t, []string{"69", "75"}, idx.Prefixes())

	bucket := idx.Lookup("75")
	require.Len(t, bucket, 2)
	assert.Same(t, paris, bucket[0], "load order is kept")
	assert.Same(t, paris2, bucket[1])

	for _, prefix := range idx.Prefixes() {
		for _, rec := range idx.Lookup(prefix) {
			assert.NotContains(t, []string{"2", "3", "4", "5"}, rec.ID)
		}
	}

	assert.NotNil(t, idx.Lookup(""))
	assert.Empty(t, idx.Lookup(""))
	assert.Empty(t, idx.Lookup("7"))
	assert.Empty(t, idx.Lookup("13"))
}

func TestHeadquartersIndex(t *testing.T) {
	first := &RegistryRecord{ID: "a", ParentID: "p1", Headquarters: true, Status: StatusClosed}
	dup := &RegistryRecord{ID: "b", ParentID: "p1", Headquarters: true, Status: StatusActive}
	secondary := &RegistryRecord{ID: "c", ParentID: "p2", Headquarters: false, Status: StatusActive}
	orphan := &RegistryRecord{ID: "d", ParentID: "", Headquarters: true, Status: StatusActive}

	idx := NewHeadquartersIndex([]*RegistryRecord{first, dup, secondary, orphan})

	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 1, idx.Duplicates())

	hq, ok := idx.Get("p1")
	require.True(t, ok)
	assert.Same(t, first, hq)

	_, ok = idx.Get("p2")
	assert.False(t, ok)

	assert.True(t, idx.Put("p2", secondary))
	assert.False(t, idx.Put("p2", first))
	assert.False(t, idx.Put("", first))
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusActive, ParseStatus("A"))
	assert.Equal(t, StatusActive, ParseStatus(" a "))
	assert.Equal(t, StatusClosed, ParseStatus("F"))
	assert.Equal(t, StatusUnknown, ParseStatus(""))
	assert.Equal(t, StatusUnknown, ParseStatus("X"))
}
