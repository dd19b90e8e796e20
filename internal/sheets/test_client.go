package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// TestClient is an in-memory stand-in for Client, used in tests. It emulates
// the ranged get/update/append semantics of the real backend closely enough
// for the domain services to run against it unchanged.
type TestClient struct {
	mu     sync.Mutex
	grids  map[string][][]string
	titles []string

	GetErr    error
	UpdateErr error
	AppendErr error
	TitlesErr error
}

func NewTestClient() *TestClient {
	return &TestClient{
		grids: make(map[string][][]string),
	}
}

func (tc *TestClient) AddSheet(title string, rows [][]string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if _, ok := tc.grids[title]; !ok {
		tc.titles = append(tc.titles, title)
	}
	copied := make([][]string, len(rows))
	for i, row := range rows {
		copied[i] = append([]string(nil), row...)
	}
	tc.grids[title] = copied
}

// Rows returns a copy of the raw grid of a sheet, for assertions.
func (tc *TestClient) Rows(title string) [][]string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	rows := tc.grids[title]
	copied := make([][]string, len(rows))
	for i, row := range rows {
		copied[i] = append([]string(nil), row...)
	}
	return copied
}

func (tc *TestClient) Get(_ context.Context, readRange string) ([][]string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.GetErr != nil {
		return nil, tc.GetErr
	}

	title, c1, r1, c2, r2, err := tc.parseRange(readRange)
	if err != nil {
		return nil, err
	}
	grid, ok := tc.grids[title]
	if !ok {
		return nil, fmt.Errorf("unknown sheet: %s", title)
	}

	if r2 == 0 || r2 > len(grid) {
		r2 = len(grid)
	}

	var out [][]string
	for r := r1; r <= r2; r++ {
		if r > len(grid) {
			break
		}
		row := grid[r-1]
		var cells []string
		for c := c1; c <= c2 && c < len(row); c++ {
			cells = append(cells, row[c])
		}
		// trim trailing empty cells, the backend never null-pads
		for len(cells) > 0 && cells[len(cells)-1] == "" {
			cells = cells[:len(cells)-1]
		}
		out = append(out, cells)
	}
	// trim trailing fully-empty rows
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (tc *TestClient) Update(_ context.Context, writeRange string, values [][]string) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.UpdateErr != nil {
		return tc.UpdateErr
	}

	title, c1, r1, _, _, err := tc.parseRange(writeRange)
	if err != nil {
		return err
	}
	if _, ok := tc.grids[title]; !ok {
		return fmt.Errorf("unknown sheet: %s", title)
	}

	for i, row := range values {
		for j, cell := range row {
			tc.setCell(title, r1+i, c1+j, cell)
		}
	}
	return nil
}

func (tc *TestClient) Append(_ context.Context, appendRange string, values [][]string) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.AppendErr != nil {
		return tc.AppendErr
	}

	title, c1, r1, c2, _, err := tc.parseRange(appendRange)
	if err != nil {
		return err
	}
	grid, ok := tc.grids[title]
	if !ok {
		return fmt.Errorf("unknown sheet: %s", title)
	}

	// append goes after the last populated row of the range's column block
	last := r1 - 1
	for r := r1; r <= len(grid); r++ {
		row := grid[r-1]
		for c := c1; c <= c2 && c < len(row); c++ {
			if row[c] != "" {
				last = r
				break
			}
		}
	}

	for i, row := range values {
		for j, cell := range row {
			tc.setCell(title, last+1+i, c1+j, cell)
		}
	}
	return nil
}

func (tc *TestClient) SheetTitles(_ context.Context) ([]string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.TitlesErr != nil {
		return nil, tc.TitlesErr
	}
	return append([]string(nil), tc.titles...), nil
}

// setCell grows the grid as needed; row is 1-based, col 0-based.
func (tc *TestClient) setCell(title string, row, col int, value string) {
	grid := tc.grids[title]
	for len(grid) < row {
		grid = append(grid, []string{})
	}
	for len(grid[row-1]) <= col {
		grid[row-1] = append(grid[row-1], "")
	}
	grid[row-1][col] = value
	tc.grids[title] = grid
}

// parseRange handles "Sheet!A1:B4", "Sheet!D2:F", "Sheet!A:A" and "Sheet!C5".
// Returns 0-based column bounds and 1-based row bounds; endRow 0 = unbounded.
func (tc *TestClient) parseRange(a1 string) (title string, c1, r1, c2, r2 int, err error) {
	bang := strings.LastIndex(a1, "!")
	if bang < 0 {
		return "", 0, 0, 0, 0, fmt.Errorf("range without sheet name: %s", a1)
	}
	title = a1[:bang]

	parts := strings.SplitN(a1[bang+1:], ":", 2)
	c1, r1, err = parseCellRef(parts[0])
	if err != nil {
		return "", 0, 0, 0, 0, fmt.Errorf("bad range %s: %w", a1, err)
	}
	if r1 == 0 {
		r1 = 1
	}
	if len(parts) == 1 {
		return title, c1, r1, c1, r1, nil
	}
	c2, r2, err = parseCellRef(parts[1])
	if err != nil {
		return "", 0, 0, 0, 0, fmt.Errorf("bad range %s: %w", a1, err)
	}
	return title, c1, r1, c2, r2, nil
}

func parseCellRef(ref string) (col int, row int, err error) {
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("no column letters in %q", ref)
	}
	col = ColumnIndex(ref[:i])
	if i == len(ref) {
		return col, 0, nil
	}
	row, err = strconv.Atoi(ref[i:])
	if err != nil {
		return 0, 0, fmt.Errorf("bad row in %q", ref)
	}
	return col, row, nil
}
