package kyc

import (
	"sort"
	"time"
)

// Progress is the derived view of a customer's verification state. It is
// computed from the event set on every read; there is no stored "current
// status" field anywhere, so the event log stays the single source of truth.
type Progress struct {
	CurrentStatus   Status      `json:"currentStatus"`
	CompletedStages []EventType `json:"completedStages"`
	CompletedCount  int         `json:"completedStageCount"`
	LastUpdated     time.Time   `json:"lastUpdated,omitzero"`
}

// Derive computes the current status and stage progress from an unordered
// event set for one customer.
//
// The record with the maximum lastUpdated determines the current status
// (last-writer-wins), so a late FAILED or FRAUD_DETECTED always overrides an
// earlier VALIDATED/VERIFIED. Timestamp ties resolve to the higher canonical
// stage. Completed stages count any canonical stage whose record exists,
// regardless of recency: a stage that once completed still stands even when a
// later stage fails.
func Derive(events []Event) Progress {
	if len(events) == 0 {
		return Progress{CurrentStatus: StatusPending, CompletedStages: []EventType{}}
	}

	latest := events[0]
	seen := make(map[EventType]bool, len(events))
	for _, e := range events[1:] {
		if Supersedes(e, latest) {
			latest = e
		}
	}
	for _, e := range events {
		if e.EventType.Canonical() {
			seen[e.EventType] = true
		}
	}

	completed := make([]EventType, 0, len(seen))
	for _, s := range Stages {
		if seen[s] {
			completed = append(completed, s)
		}
	}

	return Progress{
		CurrentStatus:   latest.KYCStatus,
		CompletedStages: completed,
		CompletedCount:  len(completed),
		LastUpdated:     latest.LastUpdated,
	}
}

// SortByTime orders events ascending by lastUpdated, ties broken by canonical
// stage order so the result is deterministic for equal timestamps.
func SortByTime(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return Supersedes(events[j], events[i])
	})
}

// Supersedes reports whether a wins over b under last-writer-wins with the
// canonical stage-order tiebreak (higher stage wins on equal timestamps).
func Supersedes(a, b Event) bool {
	if !a.LastUpdated.Equal(b.LastUpdated) {
		return a.LastUpdated.After(b.LastUpdated)
	}
	return a.EventType.StageIndex() > b.EventType.StageIndex()
}
