package ui

import (
	"reflect"
	"testing"
)

func sortFixture() []*duplicateGroup {
	files := func(n int) []*fileEntry {
		out := make([]*fileEntry, n)
		for i := range out {
			out[i] = &fileEntry{}
		}
		return out
	}
	return []*duplicateGroup{
		{Title: "/p/b.jpg", TotalSz: 100, Files: files(3)},
		{Title: "/p/c.jpg", TotalSz: 500, Files: files(1)},
		{Title: "/p/a.jpg", TotalSz: 250, Files: files(2)},
		{Title: "/p/d.jpg", TotalSz: 250, Files: files(1)},
	}
}

func TestSortGroups(t *testing.T) {
	tests := []struct {
		mode sortMode
		want []string
	}{
		// Ties on size fall back to the primary path.
		{sortByTotalSize, []string{"/p/c.jpg", "/p/a.jpg", "/p/d.jpg", "/p/b.jpg"}},
		{sortByCount, []string{"/p/b.jpg", "/p/a.jpg", "/p/c.jpg", "/p/d.jpg"}},
		{sortByPath, []string{"/p/a.jpg", "/p/b.jpg", "/p/c.jpg", "/p/d.jpg"}},
	}

	for _, tc := range tests {
		t.Run(tc.mode.String(), func(t *testing.T) {
			m := &model{sortMode: tc.mode, groups: sortFixture()}
			m.sortGroups()

			var got []string
			for _, g := range m.groups {
				got = append(got, g.Title)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("order = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSortKeyCyclesModes(t *testing.T) {
	m := &model{}
	var seen []sortMode
	for range 4 {
		seen = append(seen, m.sortMode)
		m.Update(key("s"))
	}
	want := []sortMode{sortByTotalSize, sortByCount, sortByPath, sortByTotalSize}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("modes = %v, want %v", seen, want)
	}
}
