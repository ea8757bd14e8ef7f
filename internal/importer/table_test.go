package importer

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractRowsSkipsBrandingAboveHeader(t *testing.T) {
	table := [][]string{
		{"ICF Client Coaching Log"},
		{"Coach: Dana"},
		{},
		{"Client Name", "Start Date", "Paid hours"},
		{"Bob", "15/03/24", "1"},
		{"", "", ""},
		{"Carol", "16/03/24", "1.5"},
	}

	rows := ExtractRows(table)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["Client Name"] != "Bob" || rows[1]["Paid hours"] != "1.5" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestExtractRowsMatchesHeaderCaseInsensitively(t *testing.T) {
	table := [][]string{
		{"Title"},
		{"Coaching CLIENT NAME (required)", "Start Date"},
		{"Bob", "2024-03-15"},
	}
	rows := ExtractRows(table)
	if len(rows) != 1 || rows[0]["Start Date"] != "2024-03-15" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestExtractRowsUsesFirstRowWithoutHeaderMarker(t *testing.T) {
	table := [][]string{
		{"Name", "Date"},
		{"Bob", "2024-03-15"},
	}
	rows := ExtractRows(table)
	if len(rows) != 1 || rows[0]["Name"] != "Bob" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestRowGetFallsBackToCaseInsensitiveHeader(t *testing.T) {
	row := Row{"client name": "Bob", "Email": ""}
	if got := row.Get("Client Name"); got != "Bob" {
		t.Fatalf("expected Bob, got %q", got)
	}
	if got := row.Get("Email", "Missing"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestExtractRowsMergesHeadersDifferingOnlyInCase(t *testing.T) {
	table := [][]string{
		{"Client Name", "Email", "EMAIL", "email"},
		{"Ana", "", "ana@example.com", "other@example.com"},
		{"Bea", "bea@example.com", "", "late@example.com"},
	}

	for i := 0; i < 20; i++ {
		rows := ExtractRows(table)
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if len(rows[0]) != 2 {
			t.Fatalf("expected duplicate headers to collapse, got %+v", rows[0])
		}
		if got := rows[0].Get("email"); got != "ana@example.com" {
			t.Fatalf("expected leftmost non-empty email, got %q", got)
		}
		if got := rows[1].Get("Email"); got != "bea@example.com" {
			t.Fatalf("expected leftmost email, got %q", got)
		}
	}
}

func TestRowGetCaseInsensitiveMatchIsStable(t *testing.T) {
	row := Row{"EMAIL": "upper@example.com", "eMail": "mixed@example.com"}
	for i := 0; i < 20; i++ {
		if got := row.Get("Email"); got != "upper@example.com" {
			t.Fatalf("expected stable match, got %q", got)
		}
	}
}

func TestReadTableCSVStripsByteOrderMark(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Client Name,Start Date\nBob,15/03/24\n")...)
	table, err := ReadTable("log.csv", data)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table) != 2 || table[0][0] != "Client Name" {
		t.Fatalf("unexpected table: %q", table)
	}
}

func TestReadTableXLSXReturnsRawSerials(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"Client Name", "Start Date", "Paid hours"}); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"Bob", 45000, 1}); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	table, err := ReadTable("log.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	rows := ExtractRows(table)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := NormalizeDate(rows[0]["Start Date"], fixedNow); got != "2023-03-15" {
		t.Fatalf("expected serial to normalize to 2023-03-15, got %q", got)
	}
}

func TestReadTableRejectsUnknownExtension(t *testing.T) {
	if _, err := ReadTable("log.pdf", []byte("x")); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}
