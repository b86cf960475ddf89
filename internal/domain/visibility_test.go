package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsVisible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	member := &Viewer{ID: "u1", Organizations: []string{"org-1"}}
	outsider := &Viewer{ID: "u2", Organizations: []string{"org-2"}}
	admin := &Viewer{ID: "a", Admin: true}

	public := &Opportunity{Approved: true, Date: "2026-03-02", Time: "10:00"}
	private := &Opportunity{Approved: true, Date: "2026-03-02", Time: "10:00", Visibility: []string{"org-1"}}

	tests := []struct {
		name   string
		o      *Opportunity
		viewer *Viewer
		want   bool
	}{
		{name: "public to anonymous", o: public, want: true},
		{name: "pending", o: &Opportunity{Date: "2026-03-02", Time: "10:00"}, viewer: admin, want: false},
		{name: "yesterday", o: &Opportunity{Approved: true, Date: "2026-02-28", Time: "10:00"}, want: false},
		{name: "earlier today", o: &Opportunity{Approved: true, Date: "2026-03-01", Time: "06:00"}, want: true},
		{name: "private to anonymous", o: private, want: false},
		{name: "private to member", o: private, viewer: member, want: true},
		{name: "private to outsider", o: private, viewer: outsider, want: false},
		{name: "private to admin", o: private, viewer: admin, want: true},
		{name: "nil", o: nil, viewer: admin, want: false},
		{name: "unparseable date", o: &Opportunity{Approved: true, Date: "soon", Time: "10:00"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisible(tt.o, tt.viewer, now))
		})
	}
}

func TestSortByStart(t *testing.T) {
	opps := []*Opportunity{
		{ID: "c", Date: "2026-03-02", Time: "10:00"},
		{ID: "broken", Date: "tomorrow", Time: "10:00"},
		{ID: "b", Date: "2026-03-02", Time: "10:00"},
		{ID: "tokyo", Date: "2026-03-02", Time: "12:00", Timezone: "Asia/Tokyo"}, // 03:00 UTC
		{ID: "a", Date: "2026-03-01", Time: "23:00"},
	}

	SortByStart(opps)

	got := make([]string, 0, len(opps))
	for _, o := range opps {
		got = append(got, o.ID)
	}
	assert.Equal(t, []string{"a", "tokyo", "b", "c", "broken"}, got)
}

func TestInAudience(t *testing.T) {
	private := &Opportunity{HostUserID: "h", Visibility: []string{"org-1"}}

	tests := []struct {
		name   string
		o      *Opportunity
		viewer *Viewer
		want   bool
	}{
		{name: "public to anonymous", o: &Opportunity{}, want: true},
		{name: "pending public ignores approval", o: &Opportunity{Approved: false}, viewer: &Viewer{ID: "u"}, want: true},
		{name: "private to anonymous", o: private, want: false},
		{name: "private to member", o: private, viewer: &Viewer{ID: "u", Organizations: []string{"org-1"}}, want: true},
		{name: "private to outsider", o: private, viewer: &Viewer{ID: "u", Organizations: []string{"org-2"}}, want: false},
		{name: "private to host", o: private, viewer: &Viewer{ID: "h"}, want: true},
		{name: "private to admin", o: private, viewer: &Viewer{ID: "a", Admin: true}, want: true},
		{name: "nil", o: nil, viewer: &Viewer{ID: "a", Admin: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InAudience(tt.o, tt.viewer))
		})
	}
}
