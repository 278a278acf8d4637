package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := loadCredentials(Config{CredentialsJSON: ` {"inline":true} `})
	if err != nil || string(b) != `{"inline":true}` {
		t.Fatalf("inline: got %q, %v", b, err)
	}

	b, err = loadCredentials(Config{CredentialsFile: path})
	if err != nil || !strings.Contains(string(b), "service_account") {
		t.Fatalf("file: got %q, %v", b, err)
	}

	if _, err := loadCredentials(Config{CredentialsFile: filepath.Join(dir, "missing.json")}); err == nil {
		t.Fatal("expected error for unreadable file")
	}

	_, err = loadCredentials(Config{})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestLoadCredentials_ApplicationDefaultPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adc.json")
	if err := os.WriteFile(path, []byte(`{"adc":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)

	b, err := loadCredentials(Config{})
	if err != nil || string(b) != `{"adc":1}` {
		t.Fatalf("got %q, %v", b, err)
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Entries"}
	e := core.Entry{ID: "e1", Kind: core.KindIncome, Date: core.NewDate(2024, 3, 1)}

	if _, err := c.UpsertEntry(context.Background(), e); err == nil {
		t.Fatal("expected error with nil service")
	}
	if err := c.RemoveEntry(context.Background(), "e1", 2024); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestRowFor(t *testing.T) {
	ids := []string{"ID", "a", "", "b"}
	tests := []struct {
		id   string
		want int
	}{
		{"a", 2},
		{"b", 4},
		{"c", 5},
	}
	for _, tt := range tests {
		if got := rowFor(ids, tt.id); got != tt.want {
			t.Errorf("rowFor(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
	if got := rowFor(nil, "x"); got != 1 {
		t.Errorf("rowFor on empty sheet = %d, want 1", got)
	}
}

func TestLastColumn(t *testing.T) {
	if got := lastColumn(); got != "K" {
		t.Errorf("lastColumn() = %q, want K", got)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Entries", 2025, "2025 Entries"},
		{"Office", 2024, "2024 Office"},
		{"", 2023, ""},
		{"Test Sheet", 2022, "2022 Test Sheet"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}
