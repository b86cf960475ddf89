package domain

import (
	"slices"
	"time"
)

// IsVisible reports whether o may be listed for viewer at now: it must be approved, start
// today or later (date-only, in the opportunity's timezone), and be public or shared with one
// of the viewer's organizations. Admins see every approved private opportunity.
func IsVisible(o *Opportunity, viewer *Viewer, now time.Time) bool {
	if o == nil || !o.Approved {
		return false
	}
	return startsOnOrAfterToday(o, now) && InAudience(o, viewer)
}

// InAudience reports whether viewer falls inside o's audience, ignoring approval and date:
// o is public, or viewer is an admin, its host, or a member of an organization it is shared with.
func InAudience(o *Opportunity, viewer *Viewer) bool {
	if o == nil {
		return false
	}
	if len(o.Visibility) == 0 || o.CanManage(viewer) {
		return true
	}
	return slices.ContainsFunc(o.Visibility, viewer.MemberOf)
}

func startsOnOrAfterToday(o *Opportunity, now time.Time) bool {
	loc, err := o.Location()
	if err != nil {
		loc = time.UTC
	}
	date, err := time.Parse(DateLayout, o.Date)
	if err != nil {
		return false
	}
	// DateLayout sorts lexically, so comparing formatted dates compares days.
	return date.Format(DateLayout) >= now.In(loc).Format(DateLayout)
}

// SortByStart orders opportunities by start instant, then id. Unparseable schedules sort last.
func SortByStart(opps []*Opportunity) {
	type keyed struct {
		o     *Opportunity
		start time.Time
		ok    bool
	}
	ks := make([]keyed, len(opps))
	for i, o := range opps {
		s, err := o.StartsAt()
		ks[i] = keyed{o: o, start: s, ok: err == nil}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.ok && !b.ok:
			return -1
		case !a.ok && b.ok:
			return 1
		}
		if c := a.start.Compare(b.start); c != 0 {
			return c
		}
		switch {
		case a.o.ID < b.o.ID:
			return -1
		case a.o.ID > b.o.ID:
			return 1
		}
		return 0
	})
	for i := range ks {
		opps[i] = ks[i].o
	}
}
