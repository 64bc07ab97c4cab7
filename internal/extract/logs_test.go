package extract

import (
	"context"
	"errors"
	"testing"

	"launchScope/internal/model"
)

func launchLogs(program string, body ...string) []string {
	logs := []string{"Program " + program + " invoke [1]"}
	logs = append(logs, body...)
	return append(logs, "Program "+program+" success")
}

func TestParseMintLine(t *testing.T) {
	address, amount, ok := ParseMintLine("Program log: Mint user = 7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5,amount = 123456789")
	if !ok {
		t.Fatalf("expected mint line to parse")
	}
	if address != "7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5" {
		t.Fatalf("address mismatch: %s", address)
	}
	if amount.String() != "1.23456789" {
		t.Fatalf("amount mismatch: %s", amount)
	}

	for _, line := range []string{
		"Program log: Instruction: Mint",
		"Program log: Mint user = abc",
		"Program log: Mint user = abc,amount = ten",
		"Program log: Mint user = ,amount = 1",
		"Program log: Mint user = alice,amount = -500000000",
		"Program log: Mint user = alice,amount = -1",
		"Program log: Mint user = alice,amount = +1",
		"Program log: Mint user = alice,amount = 1_000",
	} {
		if _, _, ok := ParseMintLine(line); ok {
			t.Fatalf("expected %q to be rejected", line)
		}
	}
}

func TestLogExtractorSingleRegion(t *testing.T) {
	program := testKey(1)
	ex := NewLogExtractor(program)

	tx := model.Transaction{
		Signature: "sig-1",
		HasMeta:   true,
		Logs: launchLogs(program.String(),
			"Program log: Instruction: Mint",
			"Program log: Mint user = alice,amount = 100000000",
		),
	}

	records, err := ex.Extract(tx, BlockContext{Slot: 500, Height: 450, Time: 1700000000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Address != "alice" || r.Amount.String() != "1" || r.LogIndex != 0 {
		t.Fatalf("record mismatch: %+v", r)
	}
	if r.Block != 450 || r.Time != 1700000000 || r.TxHash != "sig-1" {
		t.Fatalf("block context mismatch: %+v", r)
	}
}

func TestLogExtractorMultipleEventsInRegion(t *testing.T) {
	program := testKey(1)
	ex := NewLogExtractor(program)

	tx := model.Transaction{
		Signature: "sig-2",
		HasMeta:   true,
		Logs: launchLogs(program.String(),
			"Program log: Mint user = alice,amount = 1",
			"Program log: Mint user = bob,amount = 2",
		),
	}

	records, err := ex.Extract(tx, BlockContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].LogIndex != 0 || records[1].LogIndex != 1 {
		t.Fatalf("log index mismatch: %d, %d", records[0].LogIndex, records[1].LogIndex)
	}
	if records[0].TxHash != records[1].TxHash {
		t.Fatalf("tx hash mismatch")
	}
}

func TestLogExtractorIndexSpansRegions(t *testing.T) {
	program := testKey(1)
	ex := NewLogExtractor(program)

	logs := launchLogs(program.String(), "Program log: Mint user = alice,amount = 1")
	logs = append(logs, "Program 11111111111111111111111111111111 invoke [1]", "Program 11111111111111111111111111111111 success")
	logs = append(logs, launchLogs(program.String(), "Program log: Mint user = bob,amount = 2")...)

	records, err := ex.Extract(model.Transaction{Signature: "sig-3", HasMeta: true, Logs: logs}, BlockContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Address != "alice" || records[1].Address != "bob" {
		t.Fatalf("region order mismatch: %+v", records)
	}
	if records[1].LogIndex != 1 {
		t.Fatalf("expected second region to continue log index, got %d", records[1].LogIndex)
	}
}

func TestLogExtractorIgnoresLinesOutsideRegion(t *testing.T) {
	program := testKey(1)
	ex := NewLogExtractor(program)

	logs := []string{"Program log: Mint user = mallory,amount = 5"}
	logs = append(logs, launchLogs(program.String())...)

	records, err := ex.Extract(model.Transaction{Signature: "sig", HasMeta: true, Logs: logs}, BlockContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestLogExtractorMismatchedMarkers(t *testing.T) {
	program := testKey(1)
	ex := NewLogExtractor(program)

	logs := launchLogs(program.String(), "Program log: Mint user = alice,amount = 1")
	logs = append(logs, "Program "+program.String()+" invoke [1]", "Program log: Mint user = bob,amount = 2")

	records, err := ex.Extract(model.Transaction{Signature: "sig", HasMeta: true, Logs: logs}, BlockContext{})
	var malformed *MalformedLogsError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedLogsError, got %v", err)
	}
	if malformed.Invokes != 2 || malformed.Successes != 1 {
		t.Fatalf("marker counts mismatch: %+v", malformed)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records on malformed logs")
	}
}

func TestLogExtractorSuccessBeforeInvoke(t *testing.T) {
	program := testKey(1)
	ex := NewLogExtractor(program)

	logs := []string{
		"Program " + program.String() + " success",
		"Program log: Mint user = alice,amount = 1",
		"Program " + program.String() + " invoke [1]",
	}
	_, err := ex.Extract(model.Transaction{Signature: "sig", HasMeta: true, Logs: logs}, BlockContext{})
	var malformed *MalformedLogsError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedLogsError, got %v", err)
	}
}

func TestLogExtractorSkipsFailedAndMetaless(t *testing.T) {
	program := testKey(1)
	ex := NewLogExtractor(program)
	logs := launchLogs(program.String(), "Program log: Mint user = alice,amount = 1")

	for _, tx := range []model.Transaction{
		{Signature: "no-meta", Logs: logs},
		{Signature: "failed", HasMeta: true, Failed: true, Logs: logs},
		{Signature: "no-logs", HasMeta: true},
	} {
		records, err := ex.Extract(tx, BlockContext{})
		if err != nil || len(records) != 0 {
			t.Fatalf("%s: expected skip, got %d records err=%v", tx.Signature, len(records), err)
		}
	}
}

func TestExtractBlockSkipsMalformed(t *testing.T) {
	program := testKey(1)
	ex := NewLogExtractor(program)

	block := &model.Block{
		Slot:   10,
		Height: 9,
		Time:   42,
		Transactions: []model.Transaction{
			{Signature: "good-1", HasMeta: true, Logs: launchLogs(program.String(), "Program log: Mint user = alice,amount = 1")},
			{Signature: "bad", HasMeta: true, Logs: []string{"Program " + program.String() + " invoke [1]"}},
			{Signature: "good-2", HasMeta: true, Logs: launchLogs(program.String(), "Program log: Mint user = bob,amount = 2")},
		},
	}

	result, err := ExtractBlock(context.Background(), ex, block, BlockOptions{Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].TxHash != "good-1" || result.Records[1].TxHash != "good-2" {
		t.Fatalf("records not in transaction order: %+v", result.Records)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Signature != "bad" {
		t.Fatalf("skipped mismatch: %+v", result.Skipped)
	}
}

func TestExtractBlockStrict(t *testing.T) {
	program := testKey(1)
	ex := NewLogExtractor(program)

	block := &model.Block{
		Transactions: []model.Transaction{
			{Signature: "bad", HasMeta: true, Logs: []string{"Program " + program.String() + " invoke [1]"}},
		},
	}

	_, err := ExtractBlock(context.Background(), ex, block, BlockOptions{Strict: true})
	var malformed *MalformedLogsError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedLogsError, got %v", err)
	}
}
