package star

import (
	"bufio"
	"fmt"
	"os"
)

// Write serializes the document to the given path. Loop cells are right
// aligned per column so numeric columns line up the way RELION writes them;
// the exact padding is cosmetic and is not preserved from the input file.
func Write(doc *Document, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "# version 30001\n")
	for _, block := range doc.Blocks {
		fmt.Fprintf(w, "\ndata_%s\n\n", block.Name)
		if block.IsLoop() {
			writeLoop(w, block)
		} else {
			for _, p := range block.Pairs {
				fmt.Fprintf(w, "_%s %s\n", p.Key, p.Value)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %v", path, err)
	}
	return nil
}

func writeLoop(w *bufio.Writer, block *Block) {
	fmt.Fprintf(w, "loop_\n")
	widths := make([]int, len(block.Columns))
	for i := range block.Columns {
		fmt.Fprintf(w, "_%s #%d\n", block.Columns[i], i+1)
		for _, row := range block.Rows {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}
	for _, row := range block.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%*s", widths[i], cell)
		}
		fmt.Fprint(w, "\n")
	}
}
