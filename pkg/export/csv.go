// Package export writes stored vocabulary in formats Anki can import.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/japaniel/vocab/pkg/audio"
	"github.com/japaniel/vocab/pkg/domain"
)

var header = []string{"lemma", "translation", "examples", "word_as_found", "pos", "audio"}

// WriteCSV writes records as ';'-separated rows and returns how many were
// written. hasAudio decides whether a row references <lemma>.mp3; it may be
// nil.
func WriteCSV(w io.Writer, records []domain.Record, hasAudio func(lemma string) bool) (int, error) {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		sound := ""
		if hasAudio != nil && hasAudio(r.Lemma) {
			sound = "[sound:" + audio.FileName(r.Lemma) + "]"
		}
		row := []string{r.Lemma, r.Translation, strings.Join(r.Examples, " | "), r.Word, r.POS, sound}
		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("write %q: %w", r.Lemma, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(records), nil
}
