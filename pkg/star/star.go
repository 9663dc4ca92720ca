// Package star reads and writes STAR metadata files as produced by RELION
// and related cryo-EM packages. A document is an ordered list of data blocks;
// each block is either a loop table (named columns plus rows of string cells)
// or a flat list of key/value pairs. Block order, column order and row order
// are preserved through a read/modify/write cycle.
package star

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrColumnMissing is returned when a required column is absent from a table.
var ErrColumnMissing = errors.New("column not present")

// Pair is a single key/value line from a non-loop data block.
type Pair struct {
	Key   string
	Value string
}

// Block is one data_ section of a STAR document. A block with a loop_ table
// has Columns and Rows populated; otherwise its content lives in Pairs.
type Block struct {
	// Name is the block name without the "data_" prefix, e.g. "particles".
	Name string

	// Columns holds the loop column tags without the leading underscore,
	// in file order. Nil for non-loop blocks.
	Columns []string

	// Rows holds the table cells as strings, one slice per row, indexed
	// in the same order as Columns.
	Rows [][]string

	// Pairs holds key/value lines for non-loop blocks, in file order.
	Pairs []Pair
}

// Document is a parsed STAR file.
type Document struct {
	Blocks []*Block
}

// IsLoop reports whether the block contains a loop table.
func (b *Block) IsLoop() bool {
	return b.Columns != nil
}

// ColumnIndex returns the position of the named column, or -1 if absent.
func (b *Block) ColumnIndex(name string) int {
	for i, c := range b.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists in the table.
func (b *Block) HasColumn(name string) bool {
	return b.ColumnIndex(name) >= 0
}

// StringColumn returns all cells of the named column in row order.
func (b *Block) StringColumn(name string) ([]string, error) {
	col := b.ColumnIndex(name)
	if col < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrColumnMissing)
	}
	values := make([]string, len(b.Rows))
	for i, row := range b.Rows {
		values[i] = row[col]
	}
	return values, nil
}

// FloatColumn parses all cells of the named column as float64 values.
func (b *Block) FloatColumn(name string) ([]float64, error) {
	col := b.ColumnIndex(name)
	if col < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrColumnMissing)
	}
	values := make([]float64, len(b.Rows))
	for i, row := range b.Rows {
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d column %s: %v", i, name, err)
		}
		values[i] = v
	}
	return values, nil
}

// AddColumn appends a column with every cell set to the given default value.
// If the column already exists, its cells are reset to the default instead.
func (b *Block) AddColumn(name, def string) {
	if col := b.ColumnIndex(name); col >= 0 {
		for _, row := range b.Rows {
			row[col] = def
		}
		return
	}
	b.Columns = append(b.Columns, name)
	for i := range b.Rows {
		b.Rows[i] = append(b.Rows[i], def)
	}
}

// SetCell writes a single cell by row index and column name.
func (b *Block) SetCell(row int, name, value string) error {
	col := b.ColumnIndex(name)
	if col < 0 {
		return fmt.Errorf("%s: %w", name, ErrColumnMissing)
	}
	if row < 0 || row >= len(b.Rows) {
		return fmt.Errorf("row %d out of range (table has %d rows)", row, len(b.Rows))
	}
	b.Rows[row][col] = value
	return nil
}

// Block returns the named block, or nil if the document has no such block.
func (d *Document) Block(name string) *Block {
	for _, b := range d.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// ParticlesBlock locates the particle table of the document. RELION 3.1+
// files name it data_particles; older files carry a single unnamed loop
// block, which is accepted as a fallback.
func (d *Document) ParticlesBlock() (*Block, error) {
	if b := d.Block("particles"); b != nil && b.IsLoop() {
		return b, nil
	}
	var loops []*Block
	for _, b := range d.Blocks {
		if b.IsLoop() {
			loops = append(loops, b)
		}
	}
	if len(loops) == 1 {
		return loops[0], nil
	}
	return nil, fmt.Errorf("no particles table found (%d loop blocks)", len(loops))
}

// Read parses the STAR file at the given path.
func Read(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	doc := &Document{}
	var block *Block
	inColumns := false

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue

		case strings.HasPrefix(line, "data_"):
			block = &Block{Name: strings.TrimPrefix(line, "data_")}
			doc.Blocks = append(doc.Blocks, block)
			inColumns = false

		case line == "loop_":
			if block == nil {
				return nil, fmt.Errorf("line %d: loop_ outside data block", lineNo)
			}
			if block.IsLoop() {
				return nil, fmt.Errorf("line %d: second loop_ in block %s", lineNo, block.Name)
			}
			block.Columns = []string{}
			inColumns = true

		case strings.HasPrefix(line, "_"):
			if block == nil {
				return nil, fmt.Errorf("line %d: label outside data block", lineNo)
			}
			fields := strings.Fields(line)
			name := strings.TrimPrefix(fields[0], "_")
			if inColumns {
				block.Columns = append(block.Columns, name)
			} else if block.IsLoop() {
				return nil, fmt.Errorf("line %d: label %s after loop rows in block %s", lineNo, name, block.Name)
			} else {
				value := ""
				if len(fields) > 1 {
					value = strings.Join(fields[1:], " ")
				}
				block.Pairs = append(block.Pairs, Pair{Key: name, Value: value})
			}

		default:
			if block == nil || !block.IsLoop() {
				return nil, fmt.Errorf("line %d: unexpected data outside loop table", lineNo)
			}
			inColumns = false
			cells := strings.Fields(line)
			if len(cells) != len(block.Columns) {
				return nil, fmt.Errorf("line %d: row has %d cells, table %s has %d columns",
					lineNo, len(cells), block.Name, len(block.Columns))
			}
			block.Rows = append(block.Rows, cells)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", path, err)
	}
	if len(doc.Blocks) == 0 {
		return nil, fmt.Errorf("%s contains no data blocks", path)
	}
	return doc, nil
}
