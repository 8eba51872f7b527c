// Package analytics aggregates item metadata into usage reports. Pure
// computation, no repository access and no side effects.
package analytics

import (
	"sort"
	"time"

	"github.com/avolkovs/fieldvault/internal/server/models"
)

const topN = 10

// Size-bucket boundaries are fixed; the labels are part of the report
// contract.
const (
	BucketUnder1M  = "<1MiB"
	Bucket1to10M   = "1-10MiB"
	Bucket10to100M = "10-100MiB"
	BucketOver100M = ">=100MiB"
)

// ItemSummary is a compact view of one item for top-N listings.
type ItemSummary struct {
	ID           string
	Name         string
	Size         int64
	AccessCount  int64
	LastAccessed *time.Time
}

// Report is the result of one analytics pass over a set of active items.
type Report struct {
	TotalItems int
	TotalBytes int64

	ByContentType map[string]int
	SizeBuckets   map[string]int

	TopAccessed      []ItemSummary
	RecentlyAccessed []ItemSummary

	NeverAccessed int
	Encrypted     int
	Compressed    int
	Shared        int
}

// Aggregate builds a Report over items. shared is the set of item ids
// that currently have at least one share link.
func Aggregate(items []*models.StorageItem, shared map[string]struct{}) *Report {
	r := &Report{
		ByContentType: make(map[string]int),
		SizeBuckets: map[string]int{
			BucketUnder1M:  0,
			Bucket1to10M:   0,
			Bucket10to100M: 0,
			BucketOver100M: 0,
		},
	}

	for _, item := range items {
		r.TotalItems++
		r.TotalBytes += item.Size
		r.ByContentType[item.ContentType]++
		r.SizeBuckets[bucket(item.Size)]++

		if item.AccessCount == 0 {
			r.NeverAccessed++
		}
		if item.Encrypted {
			r.Encrypted++
		}
		if item.Compressed {
			r.Compressed++
		}
		if _, ok := shared[item.ID]; ok {
			r.Shared++
		}
	}

	r.TopAccessed = top(items, func(a, b *models.StorageItem) bool {
		return a.AccessCount > b.AccessCount
	})
	r.RecentlyAccessed = top(accessed(items), func(a, b *models.StorageItem) bool {
		return a.LastAccessed.After(*b.LastAccessed)
	})

	return r
}

func bucket(size int64) string {
	switch {
	case size < 1<<20:
		return BucketUnder1M
	case size < 10<<20:
		return Bucket1to10M
	case size < 100<<20:
		return Bucket10to100M
	default:
		return BucketOver100M
	}
}

func accessed(items []*models.StorageItem) []*models.StorageItem {
	var result []*models.StorageItem
	for _, item := range items {
		if item.LastAccessed != nil {
			result = append(result, item)
		}
	}
	return result
}

func top(items []*models.StorageItem, less func(a, b *models.StorageItem) bool) []ItemSummary {
	sorted := make([]*models.StorageItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	result := make([]ItemSummary, len(sorted))
	for i, item := range sorted {
		result[i] = ItemSummary{
			ID:           item.ID,
			Name:         item.Name,
			Size:         item.Size,
			AccessCount:  item.AccessCount,
			LastAccessed: item.LastAccessed,
		}
	}
	return result
}
