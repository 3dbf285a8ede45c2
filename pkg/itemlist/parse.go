// Package itemlist parses free-text shopping lists into item/quantity entries.
//
// Lists use the export format of crafting helpers, one item per line:
//
//	3x Gold Ingot
//	12x Cobalt Rivets
//
// Lines that do not match the format are dropped without error.
package itemlist

import (
	"strconv"
	"strings"
)

// Entry is a single parsed list line.
type Entry struct {
	Name     string
	Quantity int
}

// Stats describes how the input lines were consumed.
type Stats struct {
	// Lines is the number of non-blank lines seen.
	Lines int
	// Dropped is the number of non-blank lines that did not parse.
	Dropped int
}

// Parse splits text into lines and returns one Entry per valid line,
// in input order.
func Parse(text string) []Entry {
	entries, _ := ParseWithStats(text)
	return entries
}

// ParseWithStats behaves like Parse and additionally reports line counts.
func ParseWithStats(text string) ([]Entry, Stats) {
	var (
		entries []Entry
		stats   Stats
	)

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Lines++

		entry, ok := ParseLine(line)
		if !ok {
			stats.Dropped++
			continue
		}
		entries = append(entries, entry)
	}

	return entries, stats
}

// ParseLine parses a single "<quantity>x<name>" line.
// The quantity sign is not validated: "-2x Gold Ingot" yields -2.
func ParseLine(line string) (Entry, bool) {
	idx := strings.IndexByte(line, 'x')
	if idx == -1 || idx+1 >= len(line) {
		return Entry{}, false
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(line[:idx]))
	if err != nil {
		return Entry{}, false
	}

	name := strings.TrimSpace(line[idx+1:])
	if name == "" {
		return Entry{}, false
	}

	return Entry{Name: name, Quantity: quantity}, true
}
