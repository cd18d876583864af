package match

import (
	"sort"
	"strings"
)

// BucketKeyLength is the number of postal-code characters used as key,
// which for French codes is the département.
const BucketKeyLength = 2

// Bucket is the candidate set sharing a postal prefix, in load order
type Bucket []*RegistryRecord

// BucketKey derives the blocking key of a postal code. Codes shorter than
// BucketKeyLength have no key.
func BucketKey(postalCode string) (string, bool) {
	code := []rune(strings.TrimSpace(postalCode))
	if len(code) < BucketKeyLength {
		return "", false
	}
	return string(code[:BucketKeyLength]), true
}

// BlockingIndex partitions active registry establishments by postal prefix
type BlockingIndex struct {
	buckets map[string]Bucket
	size    int
}

// NewBlockingIndex indexes every active record that has a usable postal
// code. Closed establishments are reachable only through headquarters
// lookups.
func NewBlockingIndex(records []*RegistryRecord) *BlockingIndex {
	idx := &BlockingIndex{buckets: make(map[string]Bucket)}
	for _, rec := range records {
		if rec == nil || !rec.Active() {
			continue
		}
		key, ok := BucketKey(rec.PostalCode)
		if !ok {
			continue
		}
		idx.buckets[key] = append(idx.buckets[key], rec)
		idx.size++
	}
	return idx
}

// Lookup returns the bucket for a prefix; unknown or empty prefixes
// return an empty bucket.
func (idx *BlockingIndex) Lookup(prefix string) Bucket {
	if prefix == "" {
		return Bucket{}
	}
	if b, ok := idx.buckets[prefix]; ok {
		return b
	}
	return Bucket{}
}

// Len returns the number of buckets
func (idx *BlockingIndex) Len() int {
	return len(idx.buckets)
}

// Size returns the number of indexed records
func (idx *BlockingIndex) Size() int {
	return idx.size
}

// Prefixes returns the bucket keys in sorted order
func (idx *BlockingIndex) Prefixes() []string {
	keys := make([]string, 0, len(idx.buckets))
	for k := range idx.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HeadquartersIndex maps a legal unit identifier to its head office
type HeadquartersIndex struct {
	byParent   map[string]*RegistryRecord
	duplicates int
}

// NewHeadquartersIndex indexes every record flagged as headquarters,
// regardless of status. The first record seen for a parent wins.
func NewHeadquartersIndex(records []*RegistryRecord) *HeadquartersIndex {
	idx := &HeadquartersIndex{byParent: make(map[string]*RegistryRecord)}
	for _, rec := range records {
		if rec == nil || !rec.Headquarters {
			continue
		}
		idx.Put(rec.ParentID, rec)
	}
	return idx
}

// Put registers rec as the headquarters of parentID. It returns false and
// keeps the existing entry when one is already present.
func (idx *HeadquartersIndex) Put(parentID string, rec *RegistryRecord) bool {
	if parentID == "" || rec == nil {
		return false
	}
	if _, exists := idx.byParent[parentID]; exists {
		idx.duplicates++
		return false
	}
	idx.byParent[parentID] = rec
	return true
}

// Get returns the headquarters of parentID
func (idx *HeadquartersIndex) Get(parentID string) (*RegistryRecord, bool) {
	rec, ok := idx.byParent[parentID]
	return rec, ok
}

// Len returns the number of indexed headquarters
func (idx *HeadquartersIndex) Len() int {
	return len(idx.byParent)
}

// Duplicates counts the headquarters records ignored because their
// parent already had one.
func (idx *HeadquartersIndex) Duplicates() int {
	return idx.duplicates
}
