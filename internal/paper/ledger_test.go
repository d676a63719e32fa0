package paper

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pairbot-go/internal/execution"
	"pairbot-go/internal/market"
)

func TestLedgerRecordSnapshot(t *testing.T) {
	ledger := NewLedger(2)
	ledger.Record(execution.Fill{Key: "AMZN_STK", Side: market.Buy, Qty: 10})

	snapshot := ledger.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(snapshot))
	}
	if snapshot[0].Key != "AMZN_STK" {
		t.Fatalf("unexpected fill key")
	}

	ledger.Reset()
	if len(ledger.Snapshot()) != 0 {
		t.Fatalf("expected ledger reset")
	}
}

func TestJSONLRecorderWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills", "out.jsonl")
	rec, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder returned error: %v", err)
	}

	rec.Record(execution.Fill{Key: "AMZN_STK", Side: market.Buy, Qty: 10, Price: 100})
	rec.Record(execution.Fill{Key: "MSFT_STK", Side: market.Sell, Qty: 14, Price: 420})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var fills []execution.Fill
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var f execution.Fill
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		fills = append(fills, f)
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(fills))
	}
	if fills[1].Key != "MSFT_STK" || fills[1].Qty != 14 {
		t.Fatalf("unexpected second fill: %+v", fills[1])
	}
}
