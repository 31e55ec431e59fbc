package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lehacf-git/castle-bot/internal/execution"
	"github.com/lehacf-git/castle-bot/internal/market"
)

func TestWriteCSVRoundTrip(t *testing.T) {
	writer, err := NewRunWriter(filepath.Join(t.TempDir(), "run"))
	if err != nil {
		t.Fatalf("NewRunWriter error: %v", err)
	}
	header := []string{"ts", "ticker", "price_cents"}
	rows := [][]string{{"2026-01-02T15:04:05Z", "ELEC-24", "48"}}
	if err := writer.WriteCSV("trades.csv", header, rows); err != nil {
		t.Fatalf("WriteCSV error: %v", err)
	}

	file, err := os.Open(filepath.Join(writer.Dir(), "trades.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 || records[1][1] != "ELEC-24" {
		t.Fatalf("unexpected csv contents: %v", records)
	}
}

func TestWriteJSON(t *testing.T) {
	writer, err := NewRunWriter(filepath.Join(t.TempDir(), "run"))
	if err != nil {
		t.Fatalf("NewRunWriter error: %v", err)
	}
	if err := writer.WriteJSON("summary.json", map[string]any{"decisions": 3}); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(writer.Dir(), "summary.json"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded["decisions"] != float64(3) {
		t.Fatalf("unexpected summary: %v", decoded)
	}
}

func TestRedactConfig(t *testing.T) {
	cfg := map[string]string{
		"KALSHI_KEY_ID":    "secret-id",
		"PRIVATE_KEY_PATH": "/keys/k.pem",
		"MODE":             "paper",
		"EMPTY_TOKEN":      "",
	}
	out := RedactConfig(cfg)
	if out["KALSHI_KEY_ID"] != "***REDACTED***" || out["PRIVATE_KEY_PATH"] != "***REDACTED***" {
		t.Fatalf("secrets not redacted: %v", out)
	}
	if out["MODE"] != "paper" {
		t.Fatalf("non-secret value must pass through: %v", out)
	}
	if out["EMPTY_TOKEN"] != "" {
		t.Fatalf("empty values stay empty: %v", out)
	}
}

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	rec := execution.Record{
		Ts: time.Now().UTC(), Ticker: "ELEC-24", Side: market.Yes,
		Action: "buy", PriceCents: 48, Count: 10, Mode: "paper", Executed: true,
	}
	recorder.Record(rec)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected one line in recorder output")
	}
	var decoded execution.Record
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.Ticker != rec.Ticker || decoded.Side != rec.Side {
		t.Fatalf("unexpected decoded record")
	}
}
