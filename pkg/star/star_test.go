package star

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleStar = `# version 30001

data_optics

loop_
_rlnOpticsGroupName #1
_rlnOpticsGroup #2
opticsGroup1 1

data_particles

loop_
_rlnCoordinateX #1
_rlnCoordinateY #2
_rlnMicrographName #3
100.5 200.5 mics/mic_a.mrc
 10.0  20.0 mics/mic_b.mrc
300.0 400.0 mics/mic_a.mrc
`

// writeTestStar writes content to a temporary STAR file and returns its path
func writeTestStar(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.star")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test star file: %v", err)
	}
	return path
}

func TestReadDocument(t *testing.T) {
	doc, err := Read(writeTestStar(t, sampleStar))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(doc.Blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(doc.Blocks))
	}
	if doc.Blocks[0].Name != "optics" || doc.Blocks[1].Name != "particles" {
		t.Errorf("Unexpected block names: %q, %q", doc.Blocks[0].Name, doc.Blocks[1].Name)
	}

	particles := doc.Block("particles")
	if particles == nil {
		t.Fatal("particles block not found")
	}
	wantColumns := []string{"rlnCoordinateX", "rlnCoordinateY", "rlnMicrographName"}
	if !reflect.DeepEqual(particles.Columns, wantColumns) {
		t.Errorf("Unexpected columns: %v", particles.Columns)
	}
	if len(particles.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(particles.Rows))
	}
	if particles.Rows[1][2] != "mics/mic_b.mrc" {
		t.Errorf("Unexpected cell value: %q", particles.Rows[1][2])
	}
}

func TestParticlesBlock(t *testing.T) {
	t.Run("Named", func(t *testing.T) {
		doc, err := Read(writeTestStar(t, sampleStar))
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		b, err := doc.ParticlesBlock()
		if err != nil {
			t.Fatalf("ParticlesBlock failed: %v", err)
		}
		if b.Name != "particles" {
			t.Errorf("Expected particles block, got %q", b.Name)
		}
	})

	t.Run("SingleLoopFallback", func(t *testing.T) {
		legacy := "data_\n\nloop_\n_rlnMicrographName #1\nmic_a.mrc\n"
		doc, err := Read(writeTestStar(t, legacy))
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		b, err := doc.ParticlesBlock()
		if err != nil {
			t.Fatalf("ParticlesBlock failed on legacy file: %v", err)
		}
		if len(b.Rows) != 1 {
			t.Errorf("Expected 1 row, got %d", len(b.Rows))
		}
	})

	t.Run("NoLoop", func(t *testing.T) {
		doc, err := Read(writeTestStar(t, "data_general\n_rlnImageSizeX 4096\n"))
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if _, err := doc.ParticlesBlock(); err == nil {
			t.Error("Expected error for document without loop table")
		}
	})
}

func TestColumnAccessors(t *testing.T) {
	doc, err := Read(writeTestStar(t, sampleStar))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	particles := doc.Block("particles")

	xs, err := particles.FloatColumn("rlnCoordinateX")
	if err != nil {
		t.Fatalf("FloatColumn failed: %v", err)
	}
	if !reflect.DeepEqual(xs, []float64{100.5, 10.0, 300.0}) {
		t.Errorf("Unexpected x values: %v", xs)
	}

	if _, err := particles.FloatColumn("rlnDefocusU"); !errors.Is(err, ErrColumnMissing) {
		t.Errorf("Expected ErrColumnMissing, got %v", err)
	}
	if _, err := particles.StringColumn("rlnDefocusU"); !errors.Is(err, ErrColumnMissing) {
		t.Errorf("Expected ErrColumnMissing, got %v", err)
	}

	if _, err := particles.FloatColumn("rlnMicrographName"); err == nil {
		t.Error("Expected parse error for non-numeric column")
	}
}

func TestAddColumn(t *testing.T) {
	doc, err := Read(writeTestStar(t, sampleStar))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	particles := doc.Block("particles")

	particles.AddColumn("ibIceGroup", "-1")
	if got := particles.ColumnIndex("ibIceGroup"); got != 3 {
		t.Fatalf("Expected new column at index 3, got %d", got)
	}
	for i, row := range particles.Rows {
		if row[3] != "-1" {
			t.Errorf("Row %d not set to default: %q", i, row[3])
		}
	}

	// Overwriting resets existing cells instead of duplicating the column
	if err := particles.SetCell(1, "ibIceGroup", "42"); err != nil {
		t.Fatalf("SetCell failed: %v", err)
	}
	particles.AddColumn("ibIceGroup", "-1")
	if len(particles.Columns) != 4 {
		t.Errorf("Expected 4 columns after re-add, got %d", len(particles.Columns))
	}
	if particles.Rows[1][3] != "-1" {
		t.Errorf("Re-added column did not reset cell: %q", particles.Rows[1][3])
	}
}

func TestSetCellOutOfRange(t *testing.T) {
	doc, err := Read(writeTestStar(t, sampleStar))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	particles := doc.Block("particles")
	if err := particles.SetCell(99, "rlnCoordinateX", "0"); err == nil {
		t.Error("Expected error for out-of-range row")
	}
}

func TestRoundTrip(t *testing.T) {
	doc, err := Read(writeTestStar(t, sampleStar))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	doc.Block("particles").AddColumn("ibIceGroup", "-1")

	outPath := filepath.Join(t.TempDir(), "out.star")
	if err := Write(doc, outPath); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	reread, err := Read(outPath)
	if err != nil {
		t.Fatalf("Failed to re-read written file: %v", err)
	}
	if len(reread.Blocks) != len(doc.Blocks) {
		t.Fatalf("Block count changed: %d vs %d", len(reread.Blocks), len(doc.Blocks))
	}
	for i, b := range doc.Blocks {
		r := reread.Blocks[i]
		if r.Name != b.Name {
			t.Errorf("Block %d name changed: %q vs %q", i, r.Name, b.Name)
		}
		if !reflect.DeepEqual(r.Columns, b.Columns) {
			t.Errorf("Block %s columns changed: %v vs %v", b.Name, r.Columns, b.Columns)
		}
		if !reflect.DeepEqual(r.Rows, b.Rows) {
			t.Errorf("Block %s rows changed", b.Name)
		}
	}
}

func TestKeyValueBlockRoundTrip(t *testing.T) {
	content := "data_general\n_rlnImageSizeX 4096\n_rlnImageSizeY 4096\n\ndata_particles\n\nloop_\n_rlnMicrographName #1\nmic_a.mrc\n"
	doc, err := Read(writeTestStar(t, content))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	general := doc.Block("general")
	if general == nil || general.IsLoop() {
		t.Fatal("Expected non-loop general block")
	}
	want := []Pair{{"rlnImageSizeX", "4096"}, {"rlnImageSizeY", "4096"}}
	if !reflect.DeepEqual(general.Pairs, want) {
		t.Errorf("Unexpected pairs: %v", general.Pairs)
	}

	outPath := filepath.Join(t.TempDir(), "out.star")
	if err := Write(doc, outPath); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	reread, err := Read(outPath)
	if err != nil {
		t.Fatalf("Failed to re-read written file: %v", err)
	}
	if !reflect.DeepEqual(reread.Block("general").Pairs, want) {
		t.Errorf("Pairs changed through round trip: %v", reread.Block("general").Pairs)
	}
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"RowWidthMismatch", "data_particles\n\nloop_\n_rlnMicrographName #1\nmic_a.mrc extra\n"},
		{"LoopOutsideBlock", "loop_\n_rlnMicrographName #1\nmic_a.mrc\n"},
		{"DataOutsideLoop", "data_general\nmic_a.mrc\n"},
		{"Empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Read(writeTestStar(t, tc.content)); err == nil {
				t.Errorf("Expected parse error for %s", tc.name)
			}
		})
	}
}
