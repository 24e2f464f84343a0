package reconcile

// Outcome is the closed set of per-record reconciliation results. The zero
// value is OutcomeUnknown so a result that was never filled in cannot read as
// a success.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeAlreadyPresent
	OutcomeCreated
	OutcomeSkippedDryRun
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyPresent:
		return "already_present"
	case OutcomeCreated:
		return "created"
	case OutcomeSkippedDryRun:
		return "skipped_dry_run"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type RecordResult struct {
	Hostname string
	Address  string
	Outcome  Outcome
	Err      error
}

type Results struct {
	Records []RecordResult
}

func (r Results) Count(o Outcome) int {
	n := 0
	for _, res := range r.Records {
		if res.Outcome == o {
			n++
		}
	}
	return n
}
