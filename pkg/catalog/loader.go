package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column names accepted in the header row of an item sheet export.
var (
	idColumns         = []string{"id", "#", "key", "rowid"}
	nameColumns       = []string{"name", "singular"}
	untradableColumns = []string{"untradable", "isuntradable"}
	tradableColumns   = []string{"tradable", "istradable"}
)

// LoadFile opens path and loads it with LoadCSV.
func LoadFile(path string) (*Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	repo, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return repo, nil
}

// LoadCSV reads an item sheet export. The first row is a header naming
// an id column, a name column and either an untradable or a tradable flag
// column; other columns are ignored. Rows with an empty name are skipped.
func LoadCSV(r io.Reader) (*Repository, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idCol := findColumn(header, idColumns)
	nameCol := findColumn(header, nameColumns)
	if idCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("header must contain id and name columns (got %v)", header)
	}
	flagCol, invert := findColumn(header, untradableColumns), true
	if flagCol < 0 {
		flagCol, invert = findColumn(header, tradableColumns), false
	}
	if flagCol < 0 {
		return nil, fmt.Errorf("header must contain an untradable or tradable column (got %v)", header)
	}

	var items []Item
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) <= max(idCol, nameCol, flagCol) {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, max(idCol, nameCol, flagCol)+1, len(record))
		}

		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			continue
		}

		id, err := strconv.ParseUint(strings.TrimSpace(record[idCol]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse id: %w", line, err)
		}

		flag, err := parseBool(record[flagCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: parse %s: %w", line, header[flagCol], err)
		}

		items = append(items, Item{
			ID:       ItemID(id),
			Name:     name,
			Tradable: flag != invert,
		})
	}

	return NewRepository(items), nil
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range names {
			if h == name {
				return i
			}
		}
	}
	return -1
}

// parseBool accepts the spellings found in sheet exports.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
