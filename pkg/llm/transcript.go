package llm

// Transcript is an append-only conversation. Append never modifies the
// receiver, so a transcript can be kept as a restart point while a loop
// extends copies of it.
type Transcript struct {
	msgs []Message
}

// NewTranscript starts a transcript with the given turns.
func NewTranscript(msgs ...Message) Transcript {
	return Transcript{}.Append(msgs...)
}

// Append returns a new transcript with msgs added at the end.
func (t Transcript) Append(msgs ...Message) Transcript {
	out := make([]Message, 0, len(t.msgs)+len(msgs))
	out = append(out, t.msgs...)
	out = append(out, msgs...)
	return Transcript{msgs: out}
}

// Messages returns a copy of the turns.
func (t Transcript) Messages() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t Transcript) Len() int { return len(t.msgs) }
