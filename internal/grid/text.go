package grid

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteText writes one line per row with values joined by ", ". There is no
// trailing newline after the last row.
func (g *Grid) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for r := 0; r < g.rows; r++ {
		if r > 0 {
			bw.WriteByte('\n')
		}
		for c := 0; c < g.cols; c++ {
			if c > 0 {
				bw.WriteString(", ")
			}
			bw.WriteString(strconv.Itoa(g.get(r, c)))
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write grid: %w", err)
	}
	return nil
}

// String returns the WriteText form.
func (g *Grid) String() string {
	var sb strings.Builder
	_ = g.WriteText(&sb)
	return sb.String()
}

// ParseText reads the WriteText format. Commas and whitespace both separate
// values; blank lines are skipped.
func ParseText(r io.Reader) (*Grid, error) {
	var data [][]int
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.FieldsFunc(sc.Text(), func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\r'
		})
		if len(fields) == 0 {
			continue
		}
		row := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			row[i] = v
		}
		data = append(data, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}
	return FromRows(data)
}
