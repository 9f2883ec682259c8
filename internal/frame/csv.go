package frame

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCSV reads a source table into a frame. skip leading lines are
// discarded before the header row. idxcols (source names, pre-alias)
// select the key columns; the first remaining column becomes the value
// column. Extra non-key columns beyond the value column are ignored.
func ReadCSV(path string, skip int, idxcols []string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source table: %w", err)
	}
	defer fh.Close()

	fr, err := readCSV(fh, skip, idxcols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fr, nil
}

func readCSV(r io.Reader, skip int, idxcols []string) (*Frame, error) {
	br := bufio.NewReader(r)
	for i := 0; i < skip; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("failed to skip %d leading lines: %w", skip, err)
		}
	}

	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	colAt := make(map[string]int, len(header))
	for i, name := range header {
		colAt[name] = i
	}

	keyAt := make([]int, len(idxcols))
	isKey := make(map[int]bool, len(idxcols))
	for i, c := range idxcols {
		j, ok := colAt[c]
		if !ok {
			return nil, fmt.Errorf("index column %q not in header %v", c, header)
		}
		keyAt[i] = j
		isKey[j] = true
	}

	valueAt := -1
	for i := range header {
		if !isKey[i] {
			valueAt = i
			break
		}
	}
	if valueAt < 0 {
		return nil, fmt.Errorf("no value column left after index columns %v", idxcols)
	}

	fr, err := New(idxcols)
	if err != nil {
		return nil, err
	}
	line := 1 // header
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		line++
		key := make([]string, len(keyAt))
		for i, j := range keyAt {
			key[i] = strings.TrimSpace(rec[j])
		}
		raw := strings.TrimSpace(rec[valueAt])
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad value %q in column %q", line, raw, header[valueAt])
		}
		if err := fr.Append(key, val); err != nil {
			return nil, err
		}
	}
	return fr, nil
}
