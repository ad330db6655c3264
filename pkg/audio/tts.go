package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxAudioBytes bounds one pronunciation clip.
const maxAudioBytes = 2 << 20

// Synthesizer turns a word into MP3 data.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, langCode string) ([]byte, error)
}

// GoogleTTS reads words through the public Google Translate speech endpoint.
type GoogleTTS struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewGoogleTTS returns a synthesizer for the translate_tts endpoint.
func NewGoogleTTS(endpoint, userAgent string, timeout time.Duration) *GoogleTTS {
	return &GoogleTTS{
		endpoint:  endpoint,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Synthesize returns MP3 audio of text spoken in langCode.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, langCode string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", langCode)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts request: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("tts request: empty audio")
	}
	return data, nil
}
