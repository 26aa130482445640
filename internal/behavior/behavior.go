// Package behavior holds the per-category BehaviorInfo records that
// govern how many concurrent instances of a category are allowed and
// how a new sound in one category affects already-playing sounds in
// others (stop, pause, duck). The actual dispatch algorithm that
// consults these records lives in internal/processor, which also owns
// the channel table and registry it mutates.
package behavior

import "github.com/jsm174/libaltsound/internal/catalog"

// Info is one category's behavior record.
type Info struct {
	MaxConcurrent int                                  `yaml:"max_concurrent"`
	Stops         []catalog.Category                   `yaml:"stops"`
	Pauses        []catalog.Category                   `yaml:"pauses"`
	Ducks         map[catalog.Category]string           `yaml:"ducks"`
	EvictOldest   bool                                  `yaml:"evict_oldest"`
}

// Table maps category to its BehaviorInfo.
type Table struct {
	byCategory map[catalog.Category]*Info
}

// Default returns the built-in behavior table described in spec.md
// §4.3 and SPEC_FULL.md §6: music/solo/callout max 1 and drop on
// saturation, sfx many and evict-oldest, overlay small and
// evict-oldest.
func Default() *Table {
	return &Table{byCategory: map[catalog.Category]*Info{
		catalog.Music:   {MaxConcurrent: 1},
		catalog.Callout: {MaxConcurrent: 1},
		catalog.Solo:    {MaxConcurrent: 1},
		catalog.Sfx:     {MaxConcurrent: 8, EvictOldest: true},
		catalog.Overlay: {MaxConcurrent: 2, EvictOldest: true},
	}}
}

// New returns an empty Table.
func New() *Table {
	return &Table{byCategory: make(map[catalog.Category]*Info)}
}

// Set registers the behavior record for a category.
func (t *Table) Set(c catalog.Category, info *Info) {
	t.byCategory[catalog.Normalize(c)] = info
}

// Get returns the behavior record for a category, falling back to a
// single-concurrent, no-effects record if the category was never
// declared.
func (t *Table) Get(c catalog.Category) *Info {
	if info, ok := t.byCategory[catalog.Normalize(c)]; ok {
		return info
	}
	return &Info{MaxConcurrent: 1}
}
