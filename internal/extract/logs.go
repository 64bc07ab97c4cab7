package extract

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"launchScope/internal/model"
)

// MintLogPrefix tags the program log line that announces a mint.
const MintLogPrefix = "Program log: Mint user = "

// MalformedLogsError reports invoke/success markers of the launch program that
// cannot be paired into regions.
type MalformedLogsError struct {
	Invokes   int
	Successes int
	Reason    string
}

func (e *MalformedLogsError) Error() string {
	return fmt.Sprintf("malformed program logs: %s (invoke=%d success=%d)", e.Reason, e.Invokes, e.Successes)
}

// LogExtractor scans program log output for mint lines emitted inside the
// launch program's top-level invocations.
type LogExtractor struct {
	invokeMarker  string
	successMarker string
}

// NewLogExtractor builds a LogExtractor for program.
func NewLogExtractor(program solana.PublicKey) *LogExtractor {
	id := program.String()
	return &LogExtractor{
		invokeMarker:  "Program " + id + " invoke [1]",
		successMarker: "Program " + id + " success",
	}
}

func (e *LogExtractor) Name() string {
	return "log"
}

// Extract implements Extractor.
func (e *LogExtractor) Extract(tx model.Transaction, block BlockContext) ([]model.LaunchRecord, error) {
	if !tx.HasMeta || tx.Failed || len(tx.Logs) == 0 {
		return nil, nil
	}

	regions, err := e.regions(tx.Logs)
	if err != nil {
		return nil, err
	}

	var records []model.LaunchRecord
	var logIndex uint32
	for _, r := range regions {
		for _, line := range tx.Logs[r.start+1 : r.end] {
			address, amount, ok := ParseMintLine(line)
			if !ok {
				continue
			}
			records = append(records, model.LaunchRecord{
				Address:  address,
				Amount:   amount,
				Block:    block.Height,
				TxHash:   tx.Signature,
				LogIndex: logIndex,
				Time:     block.Time,
			})
			logIndex++
		}
	}
	return records, nil
}

type logRegion struct {
	start int
	end   int
}

// regions pairs the i-th invoke marker with the i-th success marker.
func (e *LogExtractor) regions(logs []string) ([]logRegion, error) {
	var starts, ends []int
	for i, line := range logs {
		switch line {
		case e.invokeMarker:
			starts = append(starts, i)
		case e.successMarker:
			ends = append(ends, i)
		}
	}
	if len(starts) == 0 {
		return nil, nil
	}
	if len(starts) != len(ends) {
		return nil, &MalformedLogsError{Invokes: len(starts), Successes: len(ends), Reason: "marker count mismatch"}
	}

	regions := make([]logRegion, 0, len(starts))
	for i := range starts {
		if ends[i] < starts[i] {
			return nil, &MalformedLogsError{Invokes: len(starts), Successes: len(ends), Reason: "success before invoke"}
		}
		regions = append(regions, logRegion{start: starts[i], end: ends[i]})
	}
	return regions, nil
}
