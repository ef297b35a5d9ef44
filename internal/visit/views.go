package visit

import "strings"

// Read views: pure, side-effect-free projections of the store, recomputed
// from current state on every call. None of them mutate anything.

// OnSite returns the visits currently checked in. Feeds the evacuation
// roster and the gatehouse exit-control list.
func (s *Service) OnSite() []Visit {
	return filter(s.store.List(), func(v Visit) bool {
		return v.Status == StatusCheckedIn
	})
}

// ActiveApproved returns approved visits whose credential is still usable:
// the kiosk "pending arrivals" list with a live countdown.
func (s *Service) ActiveApproved() []Visit {
	return filter(s.store.List(), func(v Visit) bool {
		return v.Status == StatusApproved && v.Credential != nil &&
			!v.Credential.Exhausted() && v.Credential.Code != ""
	})
}

// ByHost returns the visits targeted at a host.
func (s *Service) ByHost(hostID string) []Visit {
	return filter(s.store.List(), func(v Visit) bool {
		return v.HostID == hostID
	})
}

// ByDate returns the visits requested for a given date ("2006-01-02").
func (s *Service) ByDate(date string) []Visit {
	return filter(s.store.List(), func(v Visit) bool {
		return v.Date == date
	})
}

// Search matches free text against visitor name and company.
func (s *Service) Search(q string) []Visit {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return s.store.List()
	}
	return filter(s.store.List(), func(v Visit) bool {
		return strings.Contains(strings.ToLower(v.VisitorName), q) ||
			strings.Contains(strings.ToLower(v.Company), q)
	})
}

// All returns every visit, newest first.
func (s *Service) All() []Visit {
	return s.store.List()
}

func filter(in []Visit, keep func(Visit) bool) []Visit {
	out := make([]Visit, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
