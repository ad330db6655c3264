package article

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

var (
	tokenizerOnce sync.Once
	jaTokenizer   *tokenizer.Tokenizer
	tokenizerErr  error
)

func japaneseTokenizer() (*tokenizer.Tokenizer, error) {
	tokenizerOnce.Do(func() {
		jaTokenizer, tokenizerErr = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	})
	return jaTokenizer, tokenizerErr
}

// CountWords counts the words of text. Japanese has no spaces between
// words, so it is segmented with a morphological tokenizer and symbols are
// left out; every other language is split on whitespace.
func CountWords(text, lang string) (int, error) {
	if !isJapanese(lang) {
		return len(strings.Fields(text)), nil
	}

	t, err := japaneseTokenizer()
	if err != nil {
		return 0, fmt.Errorf("japanese tokenizer: %w", err)
	}

	n := 0
	for _, token := range t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		// IPA feature 0 is the part of speech; 記号 marks punctuation.
		if features := token.Features(); len(features) > 0 && features[0] == "記号" {
			continue
		}
		n++
	}
	return n, nil
}

func isJapanese(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "ja", "jp", "japanese":
		return true
	}
	return false
}
