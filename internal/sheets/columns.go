package sheets

import (
	"fmt"
	"strings"
)

// ColumnName converts a 0-based column index to its A1 letter name
// (0 -> A, 1 -> B, 25 -> Z, 26 -> AA). Session columns start at B,
// so session i lives in ColumnName(i+1).
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	name := ""
	for index >= 0 {
		name = string(rune('A'+index%26)) + name
		index = index/26 - 1
	}
	return name
}

// ColumnIndex is the inverse of ColumnName; returns -1 for invalid input.
func ColumnIndex(name string) int {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return -1
	}
	index := 0
	for _, r := range name {
		if r < 'A' || r > 'Z' {
			return -1
		}
		index = index*26 + int(r-'A') + 1
	}
	return index - 1
}

// CellRef builds an A1 cell reference from 0-based column and 1-based row.
func CellRef(sheetName string, colIndex, row int) string {
	return fmt.Sprintf("%s!%s%d", sheetName, ColumnName(colIndex), row)
}
