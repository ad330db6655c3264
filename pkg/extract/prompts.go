package extract

import (
	"fmt"
	"strings"

	"github.com/japaniel/vocab/pkg/domain"
)

const candidateFormat = `Output format (JSON array only, no markdown):
[
  {
    "word": "<form as found>",
    "lemma": "<dictionary form>",
    "pos": "<verb|noun|adjective|adverb|preposition|conjunction|pronoun|phrase>",
    "translation": "<translation matching the context>",
    "gender": "<m|f|n, nouns only, omit otherwise>",
    "examples": ["<sentence>"]
  }
]`

func selectSystemPrompt(sourceLang, targetLang string, count int) string {
	return fmt.Sprintf(`You are a %[1]s-%[2]s vocabulary assistant. Given a %[1]s text, select vocabulary words for a %[2]s speaker learning %[1]s.

Rules:
- Return exactly %[3]d words as a JSON array
- Exclude words already known (provided in a list)
- For verbs: "word" is the conjugated form found, "lemma" is the infinitive
- Include 1-2 example sentences from the text for each word
- "translation" gives the meaning in context, plus the infinitive for verbs
- Prefer useful vocabulary over obscure terms
- Mix parts of speech: verbs, nouns, adjectives, adverbs, prepositions, conjunctions

%[4]s`, sourceLang, targetLang, count, candidateFormat)
}

func selectUserPrompt(req SelectRequest) string {
	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		instructions = "pick useful vocabulary words"
	}
	return fmt.Sprintf(`Text:
%s

Known words (exclude these):
%s

User request: %s

Select %d vocabulary words. Return the JSON array only.`,
		req.Text, knownList(req.KnownLemmas), instructions, req.Count)
}

func themeSystemPrompt(req ThemeRequest) string {
	return fmt.Sprintf(`You are a %[1]s-%[2]s vocabulary assistant building a themed word list for a %[2]s speaker learning %[1]s.

Before answering, use the tools to look at existing themes that overlap with the request and check which of their words are already covered. Do not repeat words that a related theme already has.

Rules:
- Return exactly %[3]d words as a JSON array
- Exclude words already known (provided in a list)
- "word" and "lemma" are both the dictionary form unless a fixed expression is more useful
- Write 1-2 short natural example sentences in %[1]s for each word
- Stay on the theme and prefer high-frequency words

%[4]s`, req.SourceLang, req.TargetLang, req.Count, candidateFormat)
}

func themeUserPrompt(req ThemeRequest) string {
	return fmt.Sprintf(`Theme: %s

Known words (exclude these):
%s

Generate %d vocabulary words for this theme. Return the JSON array only.`,
		req.Description, knownList(req.KnownLemmas), req.Count)
}

func pickPrompt(records []domain.Record, query string) string {
	var b strings.Builder
	b.WriteString("Here is a numbered vocabulary list:\n\n")
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s", i, r.Lemma)
		if r.POS != "" {
			fmt.Fprintf(&b, " (%s)", r.POS)
		}
		fmt.Fprintf(&b, ": %s\n", r.Translation)
	}
	fmt.Fprintf(&b, "\nWhich entry best matches this request: %q?\nAnswer with the number only.", query)
	return b.String()
}

func knownList(lemmas []string) string {
	if len(lemmas) == 0 {
		return "none"
	}
	return strings.Join(lemmas, ", ")
}
