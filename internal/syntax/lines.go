package syntax

import "sort"

// Position is a 0-based line and byte column.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// LineIndex converts byte offsets to positions.
type LineIndex struct {
	starts []uint32 // byte offset of the first byte of each line
	size   uint32
}

// NewLineIndex scans src once for line breaks.
func NewLineIndex(src []byte) *LineIndex {
	starts := []uint32{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return &LineIndex{starts: starts, size: uint32(len(src))}
}

// Position returns the line and column of offset. Offsets past the end clamp
// to the end of the source.
func (li *LineIndex) Position(offset uint32) Position {
	offset = min(offset, li.size)
	line := sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > offset
	}) - 1
	return Position{Line: line, Col: int(offset - li.starts[line])}
}

// LineCount returns the number of lines, counting a trailing partial line.
func (li *LineIndex) LineCount() int { return len(li.starts) }
