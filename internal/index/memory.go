package index

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/domain"
)

// DefaultHistory is the number of reports kept per target.
const DefaultHistory = 50

// MemoryIndex holds recent verification reports per target.
// It is the primary read path; Redis mirrors it best-effort.
type MemoryIndex struct {
	mu        sync.RWMutex
	history   int
	reports   map[string][]*domain.Report // target -> reports, newest first
	targets   []domain.Target
	lastRound time.Time // completion of the last full verification round
}

// NewMemoryIndex creates a new memory index keeping history reports per target
func NewMemoryIndex(history int) *MemoryIndex {
	if history <= 0 {
		history = DefaultHistory
	}
	return &MemoryIndex{
		history: history,
		reports: make(map[string][]*domain.Report),
	}
}

// SetTargets records the configured targets
func (idx *MemoryIndex) SetTargets(targets []domain.Target) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.targets = append([]domain.Target(nil), targets...)
}

// Targets returns the configured targets
func (idx *MemoryIndex) Targets() []domain.Target {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return append([]domain.Target(nil), idx.targets...)
}

// AddReport inserts a report keeping each target's list sorted newest first
// and trimmed to the history size. Re-adding a known ID replaces it.
func (idx *MemoryIndex) AddReport(report *domain.Report) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	list := idx.reports[report.Target]
	for i, r := range list {
		if r.ID == report.ID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append(list, report)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartedAt.After(list[j].StartedAt)
	})
	if len(list) > idx.history {
		list = list[:idx.history]
	}
	idx.reports[report.Target] = list
}

// Load replaces the whole index content, used when syncing from Redis
func (idx *MemoryIndex) Load(reports []*domain.Report) {
	idx.mu.Lock()
	idx.reports = make(map[string][]*domain.Report)
	idx.mu.Unlock()

	for _, r := range reports {
		idx.AddReport(r)
	}
}

// Latest returns the newest report for target
func (idx *MemoryIndex) Latest(target string) (*domain.Report, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	list := idx.reports[target]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// LatestAll returns the newest report of every target, sorted by target name
func (idx *MemoryIndex) LatestAll() []*domain.Report {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]*domain.Report, 0, len(idx.reports))
	for _, list := range idx.reports {
		if len(list) > 0 {
			out = append(out, list[0])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// History returns up to limit reports for target, newest first (limit <= 0 = all)
func (idx *MemoryIndex) History(target string, limit int) ([]*domain.Report, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	list, ok := idx.reports[target]
	if !ok {
		return nil, false
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return append([]*domain.Report(nil), list...), true
}

// All returns every report in the index
func (idx *MemoryIndex) All() []*domain.Report {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []*domain.Report
	for _, list := range idx.reports {
		out = append(out, list...)
	}
	return out
}

// DeleteReport removes a report from the index
func (idx *MemoryIndex) DeleteReport(target, id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	list := idx.reports[target]
	for i, r := range list {
		if r.ID == id {
			idx.reports[target] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(idx.reports[target]) == 0 {
		delete(idx.reports, target)
	}
}

// Count returns the number of reports in the index
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := 0
	for _, list := range idx.reports {
		n += len(list)
	}
	return n
}

// MarkRound records the completion time of a verification round
func (idx *MemoryIndex) MarkRound(at time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.lastRound = at
}

// LastRound returns the completion time of the last verification round
func (idx *MemoryIndex) LastRound() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastRound
}
