package tabfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestReadCSVStringCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.csv")
	blob := "Contract,MFN,Cost\nC1,00123,\"$1,000.50\"\nC2,A-9,$5\n"
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows=%d", tbl.Len())
	}
	if got := tbl.Get(tbl.Rows[0], "MFN"); got != "00123" {
		t.Fatalf("cells must stay strings, got %q", got)
	}
	if got := tbl.Get(tbl.Rows[0], "Cost"); got != "$1,000.50" {
		t.Fatalf("got %q", got)
	}
}

func TestRequireReportsMissingColumns(t *testing.T) {
	tbl := New("input", []string{"Contract", "MFN"})
	err := tbl.Require([]string{"Contract", "MFN", "UOM", "QOE"})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("want SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 2 {
		t.Fatalf("missing=%v", schemaErr.Missing)
	}
}

func TestWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	c1 := New("C100", []string{"Mfg Part Num", "QOE"})
	c1.Append([]string{"00123", "1"})
	c2 := New("C200", []string{"Mfg Part Num", "QOE"})
	c2.Append([]string{"A-9", "12"})
	c2.Append([]string{"B-7", "6"})

	if err := WriteWorkbook(path, []*Table{c1, c2}); err != nil {
		t.Fatal(err)
	}

	sheets, err := ReadWorkbook(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(sheets) != 2 {
		t.Fatalf("sheets=%d", len(sheets))
	}
	if sheets[0].Name != "C100" || sheets[1].Name != "C200" {
		t.Fatalf("sheet order: %s, %s", sheets[0].Name, sheets[1].Name)
	}
	if sheets[1].Len() != 2 {
		t.Fatalf("rows=%d", sheets[1].Len())
	}
	if got := sheets[0].Get(sheets[0].Rows[0], "Mfg Part Num"); got != "00123" {
		t.Fatalf("got %q", got)
	}

	if _, err := ReadSheet(path, "C300"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for missing sheet, got %v", err)
	}
}
