package evacuation

import (
	"sort"
	"strings"
	"sync"

	"visitor-platform/internal/visit"
)

// OnSiteLister supplies the visits currently inside the building.
// Implemented by visit.Service.
type OnSiteLister interface {
	OnSite() []visit.Visit
}

// Filter selects which roster slice to display.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterMissing Filter = "missing"
	FilterSafe    Filter = "safe"
)

// Entry is one roster row: the on-site visit plus its accounted state.
type Entry struct {
	Visit     visit.Visit `json:"visit"`
	Accounted bool        `json:"accounted"`
}

// Stats summarizes evacuation progress.
type Stats struct {
	Total    int     `json:"total"`
	Safe     int     `json:"safe"`
	Missing  int     `json:"missing"`
	Progress float64 `json:"progress"`
}

// Roster tracks who has been accounted for during an evacuation drill or
// emergency. The underlying list is always the live set of checked-in
// visits; the accounted marks are roster state, not visit state.
type Roster struct {
	visits OnSiteLister

	mu        sync.Mutex
	accounted map[string]bool
}

func NewRoster(visits OnSiteLister) *Roster {
	return &Roster{visits: visits, accounted: make(map[string]bool)}
}

// MarkSafe flags a visitor as accounted for at the muster point.
func (r *Roster) MarkSafe(visitID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounted[visitID] = true
}

// MarkMissing reverts a visitor to unaccounted.
func (r *Roster) MarkMissing(visitID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounted, visitID)
}

// Reset clears all accounted marks (new drill).
func (r *Roster) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounted = make(map[string]bool)
}

// Stats recomputes progress from the live on-site list.
func (r *Roster) Stats() Stats {
	onsite := r.visits.OnSite()
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{Total: len(onsite)}
	for _, v := range onsite {
		if r.accounted[v.ID] {
			s.Safe++
		}
	}
	s.Missing = s.Total - s.Safe
	if s.Total > 0 {
		s.Progress = float64(s.Safe) / float64(s.Total) * 100
	}
	return s
}

// List returns the roster filtered and ordered missing-first. A search
// term overrides the filter and matches name or company.
func (r *Roster) List(f Filter, search string) []Entry {
	onsite := r.visits.OnSite()
	search = strings.ToLower(strings.TrimSpace(search))

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(onsite))
	for _, v := range onsite {
		accounted := r.accounted[v.ID]
		if search != "" {
			if !strings.Contains(strings.ToLower(v.VisitorName), search) &&
				!strings.Contains(strings.ToLower(v.Company), search) {
				continue
			}
		} else {
			switch f {
			case FilterMissing:
				if accounted {
					continue
				}
			case FilterSafe:
				if !accounted {
					continue
				}
			}
		}
		out = append(out, Entry{Visit: v, Accounted: accounted})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].Accounted && out[j].Accounted
	})
	return out
}
