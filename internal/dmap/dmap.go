// Implement our primary data structure Dmap.
//
// Dmap maps a primary image to the secondary images that duplicate it:
//
// { /primary/a.jpg --> [/secondary/a.jpg, /secondary/copy-of-a.jpg] }
//
// Primaries are kept in the order they were added, which for a matching
// run is the order their lookups completed.
package dmap

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

// Dmap structure will hold our file duplication data.
// It is the primary data structure that will house the results
// that will eventually be returned to the user.
type Dmap struct {
	mu        sync.RWMutex
	filesMap  map[string][]string
	order     []string
	fileCount uint
}

// NewDmap returns a new Dmap structure.
func NewDmap() (*Dmap, error) {

	dmap := &Dmap{
		filesMap: make(map[string][]string),
	}

	return dmap, nil
}

// Add records the duplicates of primary. Empty match lists are dropped so
// the map never holds a primary without duplicates. Adding the same primary
// twice appends to its list.
func (d *Dmap) Add(primary string, matches []string) {
	if len(matches) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.filesMap[primary]; !ok {
		d.order = append(d.order, primary)
	}
	d.filesMap[primary] = append(d.filesMap[primary], matches...)
	d.fileCount += uint(len(matches))
}

// Get will get slice of duplicates associated with primary.
func (d *Dmap) Get(primary string) ([]string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	res, ok := d.filesMap[primary]
	if !ok {
		return nil, false
	}
	return append([]string(nil), res...), true
}

// Primaries returns the primaries in insertion order.
func (d *Dmap) Primaries() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// Secondaries returns every duplicate once, in first-seen order. Several
// primaries may share a duplicate when matching by size.
func (d *Dmap) Secondaries() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]struct{}, d.fileCount)
	out := make([]string, 0, d.fileCount)
	for _, p := range d.order {
		for _, s := range d.filesMap[p] {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// MapSize returns number of primaries in the map.
func (d *Dmap) MapSize() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.filesMap)
}

// FileCount will return the number of duplicate references held.
func (d *Dmap) FileCount() uint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fileCount
}

// GetMap will return a copy of the map.
func (d *Dmap) GetMap() map[string][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string][]string, len(d.filesMap))
	for k, v := range d.filesMap {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// PrintDmap will print entries currently stored in map.
func (d *Dmap) PrintDmap() {
	for _, p := range d.Primaries() {
		files, _ := d.Get(p)
		fmt.Printf("Primary: %s  \n ---> Duplicates: \n", p)
		for i, f := range files {
			fmt.Printf("\t%d: %s \n", i, f)
		}
		fmt.Println("--------------------------")
	}
}

// ShowResults will display duplicates held in our Dmap as
// a pretty tree.
func (d *Dmap) ShowResults() error {

	var leveledList pterm.LeveledList

	for _, primary := range d.Primaries() {
		files, _ := d.Get(primary)
		// The primary is the level 0 item; its duplicates hang off it.
		leveledList = append(leveledList, pterm.LeveledListItem{Level: 0, Text: pterm.LightGreen(primary)})
		for _, f := range files {
			leveledList = append(leveledList, pterm.LeveledListItem{Level: 1, Text: f})
		}
	}

	if len(leveledList) == 0 {
		pterm.Info.Println("No duplicates found.")
		return nil
	}

	root := putils.TreeFromLeveledList(leveledList)
	return pterm.DefaultTree.WithRoot(root).Render()
}
