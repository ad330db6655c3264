package domain

// OutcomeKind tags what happened to one item of a batch.
type OutcomeKind int

const (
	OutcomeAdded OutcomeKind = iota + 1
	OutcomeUpdated
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAdded:
		return "added"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-item result of a batch operation. Reason is set for
// failed items and optionally for skipped ones.
type Outcome struct {
	Key    string
	Kind   OutcomeKind
	Reason string
}

func Added(key string) Outcome   { return Outcome{Key: key, Kind: OutcomeAdded} }
func Updated(key string) Outcome { return Outcome{Key: key, Kind: OutcomeUpdated} }

func Skipped(key, reason string) Outcome {
	return Outcome{Key: key, Kind: OutcomeSkipped, Reason: reason}
}

func Failed(key string, err error) Outcome {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return Outcome{Key: key, Kind: OutcomeFailed, Reason: reason}
}

// Tally counts outcomes by kind.
type Tally struct {
	Added   int
	Updated int
	Skipped int
	Failed  int
}

// Summarize counts the outcomes of a batch.
func Summarize(outcomes []Outcome) Tally {
	var t Tally
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeAdded:
			t.Added++
		case OutcomeUpdated:
			t.Updated++
		case OutcomeSkipped:
			t.Skipped++
		case OutcomeFailed:
			t.Failed++
		}
	}
	return t
}

// KeysOf returns the keys of outcomes with the given kind.
func KeysOf(outcomes []Outcome, kind OutcomeKind) []string {
	var keys []string
	for _, o := range outcomes {
		if o.Kind == kind {
			keys = append(keys, o.Key)
		}
	}
	return keys
}
