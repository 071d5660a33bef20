package dataprocessing

import (
	"tankyou/pkg/contracts/domain"
)

// Outcome is the reason a stage produced what it produced. Stages never
// return errors; they report an Outcome and an empty result instead.
type Outcome int

const (
	// OutcomeOK means the file was processed. Rows may still have been
	// dropped, see StageResult.Dropped.
	OutcomeOK Outcome = iota
	// OutcomeMissingInput means the input file could not be opened
	OutcomeMissingInput
	// OutcomeMissingSchema means a required column is absent
	OutcomeMissingSchema
	// OutcomeFailed covers everything else (I/O errors, recovered panics)
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeMissingInput:
		return "missing_input"
	case OutcomeMissingSchema:
		return "missing_schema"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StageResult carries the bookkeeping common to both processors
type StageResult struct {
	Outcome Outcome
	// Err is the underlying reason for a non-OK outcome, for logging only
	Err error

	Read     int // data rows parsed
	Skipped  int // malformed lines the parser skipped
	Filtered int // rows excluded by whitelist, coordinate or id filters
	Dropped  int // rows that passed filtering but failed conversion
	Kept     int
}

// OK reports whether the stage processed its file
func (s StageResult) OK() bool {
	return s.Outcome == OutcomeOK
}

// Partial reports a processed file that lost rows to conversion errors
func (s StageResult) Partial() bool {
	return s.Outcome == OutcomeOK && s.Dropped > 0
}

// RegistryResult is the output of ProcessRegistry. IDs holds the station ids
// in file order.
type RegistryResult struct {
	StageResult
	Stations []domain.StationRecord
	IDs      []int64
}

// PriceResult is the output of ProcessPrices
type PriceResult struct {
	StageResult
	Prices []domain.PriceRecord
}
