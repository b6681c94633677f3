package models

import (
	"fmt"
	"sort"
)

// ThresholdTable maps level to the minimum cumulative XP required to
// hold it. Immutable after construction. Level 0 has no explicit floor.
type ThresholdTable struct {
	levels []int
	minXP  map[int]int64
}

// NewThresholdTable validates and freezes a level -> minimum XP mapping.
// Thresholds must be strictly increasing with level; levels start at 1
// and may be sparse.
func NewThresholdTable(thresholds map[int]int64) (*ThresholdTable, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("threshold table must define at least one level")
	}

	levels := make([]int, 0, len(thresholds))
	minXP := make(map[int]int64, len(thresholds))
	for level, xp := range thresholds {
		if level < 1 {
			return nil, fmt.Errorf("invalid level %d: levels start at 1", level)
		}
		if xp < 0 {
			return nil, fmt.Errorf("level %d has negative threshold %d", level, xp)
		}
		levels = append(levels, level)
		minXP[level] = xp
	}
	sort.Ints(levels)

	prev := int64(-1)
	for _, level := range levels {
		if minXP[level] <= prev {
			return nil, fmt.Errorf("threshold for level %d must exceed the previous level's", level)
		}
		prev = minXP[level]
	}

	return &ThresholdTable{levels: levels, minXP: minXP}, nil
}

// LevelOf returns the highest level whose threshold xp satisfies.
// Level 0 is always satisfied.
func (t *ThresholdTable) LevelOf(xp int64) int {
	level := 0
	for _, l := range t.levels {
		if xp >= t.minXP[l] {
			level = l
		}
	}
	return level
}

// NextThreshold returns the XP required for level+1, or false when no
// such level is configured.
func (t *ThresholdTable) NextThreshold(level int) (int64, bool) {
	xp, ok := t.minXP[level+1]
	return xp, ok
}

// MinXP returns the threshold for a level; 0 for level 0 or unknown
// levels.
func (t *ThresholdTable) MinXP(level int) int64 {
	return t.minXP[level]
}

// MaxLevel returns the highest configured level.
func (t *ThresholdTable) MaxLevel() int {
	return t.levels[len(t.levels)-1]
}
