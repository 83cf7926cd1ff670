package archive

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// lookback is how far before the limit a plain line break may be used.
const lookback = 200

// Part is one piece of a split archive. Text carries the continuation
// markers.
type Part struct {
	Number int
	Text   string
	First  bool
	Last   bool
}

// block is a byte range [start, end) of the document. Records run from a
// file heading through the end of the body. Bare blocks are fenced blocks
// outside any record, such as the structure tree.
type block struct {
	start, end int
	openEnd    int    // end of the opening fence line (bare blocks)
	open       string // opening fence line (bare blocks)
	fence      string
	record     bool
}

type layout struct {
	records []block
	bare    []block
}

func lineAt(doc string, pos int) (string, int) {
	end := len(doc)
	if i := strings.IndexByte(doc[pos:], '\n'); i >= 0 {
		end = pos + i + 1
	}
	return strings.TrimRight(doc[pos:end], "\r\n"), end
}

// ParseFence reports whether line opens a fenced code block and returns
// its fence and info string.
func ParseFence(line string) (fence, info string, ok bool) {
	n := 0
	for n < len(line) && line[n] == '`' {
		n++
	}
	if n < minFenceLen || strings.Contains(line[n:], "`") {
		return "", "", false
	}
	return line[:n], strings.TrimSpace(line[n:]), true
}

// scanLayout finds every record and bare fenced block in doc.
func scanLayout(doc string) layout {
	var l layout
	var (
		fence    string // non-empty while inside a code block
		bare     *block
		rec      = -1 // start of the open record
		recEnd   int  // end of the last body line of the open record
		recBody  bool
		closeRec = func() {
			if rec >= 0 {
				l.records = append(l.records, block{start: rec, end: recEnd, record: true})
				rec = -1
			}
		}
	)

	for pos := 0; pos < len(doc); {
		line, next := lineAt(doc, pos)
		switch {
		case fence != "":
			if line == fence {
				fence = ""
				if rec >= 0 {
					recEnd = next
					closeRec()
				} else if bare != nil {
					bare.end = next
					l.bare = append(l.bare, *bare)
					bare = nil
				}
			}
		case strings.HasPrefix(line, RecordPrefix):
			closeRec()
			rec, recEnd, recBody = pos, next, false
		case isFence(line):
			fence, _, _ = ParseFence(line)
			if rec < 0 {
				bare = &block{start: pos, openEnd: next, open: line, fence: fence}
			}
		case rec >= 0:
			if strings.TrimSpace(line) != "" {
				recBody = true
				recEnd = next
			} else if recBody {
				closeRec()
			}
		}
		pos = next
	}

	switch {
	case fence != "" && rec >= 0:
		recEnd = len(doc)
		closeRec()
	case bare != nil:
		bare.end = len(doc)
		l.bare = append(l.bare, *bare)
	default:
		closeRec()
	}
	return l
}

func isFence(line string) bool {
	_, _, ok := ParseFence(line)
	return ok
}

// inside returns the block strictly containing p.
func inside(blocks []block, p int) (block, bool) {
	i := sort.Search(len(blocks), func(i int) bool { return blocks[i].start >= p }) - 1
	if i >= 0 && p < blocks[i].end {
		return blocks[i], true
	}
	return block{}, false
}

func (l layout) safe(p int) bool {
	_, in := inside(l.records, p)
	return !in
}

// lastSafe returns the last cut at or before hi produced by an occurrence
// of sep starting at or after lo. The cut lies skip bytes past the start
// of sep.
func (l layout) lastSafe(doc, sep string, skip, lo, hi int) int {
	end := hi - skip + len(sep)
	if end > len(doc) {
		end = len(doc)
	}
	for end-lo >= len(sep) {
		i := strings.LastIndex(doc[lo:end], sep)
		if i < 0 {
			return -1
		}
		cut := lo + i + skip
		if cut <= hi && l.safe(cut) {
			return cut
		}
		end = lo + i + len(sep) - 1
	}
	return -1
}

// cut picks where the part starting at offset ends. len(doc)-offset must
// exceed limit.
func (l layout) cut(doc string, offset, limit int) int {
	hi := offset + limit
	lo := offset + limit/2
	if lo <= offset {
		lo = offset + 1
	}

	// Start of the last record beginning in the window.
	i := sort.Search(len(l.records), func(i int) bool { return l.records[i].start > hi }) - 1
	if i >= 0 && l.records[i].start >= lo {
		return l.records[i].start
	}

	best := l.lastSafe(doc, "\n\n", 2, lo, hi)
	if c := l.lastSafe(doc, "\n## ", 1, lo, hi); c > best {
		best = c
	}
	if best > offset {
		return best
	}

	near := hi - lookback
	if near <= offset {
		near = offset + 1
	}
	if c := l.lastSafe(doc, "\n", 1, near, hi); c > offset {
		return c
	}

	// Hard split. A record is never broken: cut before it, or let the part
	// run past the limit to the record's end.
	if r, in := inside(l.records, hi); in {
		if r.start > offset {
			return r.start
		}
		return r.end
	}
	p := hi
	for p > offset+1 && !utf8.RuneStart(doc[p]) {
		p--
	}
	return p
}

// Split divides a finalized archive into parts of at most limit bytes of
// document text each, excluding continuation markers. A record larger
// than the limit gets a part of its own. A non-positive limit or a short
// document yields a single part.
func Split(doc string, limit int) []Part {
	if limit <= 0 || len(doc) <= limit {
		return []Part{{Number: 1, Text: doc, First: true, Last: true}}
	}

	l := scanLayout(doc)
	cuts := []int{0}
	for offset := 0; len(doc)-offset > limit; {
		c := l.cut(doc, offset, limit)
		cuts = append(cuts, c)
		offset = c
	}
	cuts = append(cuts, len(doc))

	parts := make([]Part, 0, len(cuts)-1)
	for k := 0; k+1 < len(cuts); k++ {
		start, end := cuts[k], cuts[k+1]
		var b strings.Builder
		if k > 0 {
			fmt.Fprintf(&b, "**Continued from part %d**\n\n", k)
			if blk, ok := inside(l.bare, start); ok && start >= blk.openEnd {
				b.WriteString(blk.open + "\n")
			}
		}
		seg := doc[start:end]
		b.WriteString(seg)
		last := k+2 == len(cuts)
		if !last {
			if !strings.HasSuffix(seg, "\n") {
				b.WriteString("\n")
			}
			if blk, ok := inside(l.bare, end); ok && end >= blk.openEnd {
				b.WriteString(blk.fence + "\n")
			}
			fmt.Fprintf(&b, "\n**Continued in part %d**\n", k+2)
		}
		parts = append(parts, Part{Number: k + 1, Text: b.String(), First: k == 0, Last: last})
	}
	return parts
}

// PartName derives the file name of part n from the base output path:
// "out/doc.md" becomes "out/doc_part2.md".
func PartName(path string, n int) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	if ext == base {
		ext = ""
	}
	stem := strings.TrimSuffix(base, ext)
	return dir + fmt.Sprintf("%s_part%d%s", stem, n, ext)
}
