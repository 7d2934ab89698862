// Package speech implements ports.Transcriber against the Google speech-api
// v2 recognize endpoint.
package speech

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bft-labs/penpal/internal/audio"
	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

// DefaultEndpoint is the public recognize endpoint.
const DefaultEndpoint = "http://www.google.com/speech-api/v2/recognize"

// Config selects the endpoint and recognition language.
type Config struct {
	Endpoint string
	Key      string
	Language string
}

// Transcriber posts L16 audio and returns the best transcript.
type Transcriber struct {
	cfg    Config
	client ports.HTTPClient
	logger ports.Logger
}

// NewTranscriber creates a Transcriber. Empty Endpoint and Language fall back
// to DefaultEndpoint and en-US.
func NewTranscriber(cfg Config, client ports.HTTPClient, logger ports.Logger) *Transcriber {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	return &Transcriber{cfg: cfg, client: client, logger: logger}
}

// recognizeResponse is one line of the endpoint's newline-delimited output.
type recognizeResponse struct {
	Result []struct {
		Alternative []struct {
			Transcript string   `json:"transcript"`
			Confidence *float64 `json:"confidence"`
		} `json:"alternative"`
		Final bool `json:"final"`
	} `json:"result"`
}

// Transcribe sends clip once. It never retries.
func (t *Transcriber) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if len(clip.Samples) == 0 {
		return "", fmt.Errorf("empty clip: %w", domain.ErrUnrecognized)
	}

	u, err := url.Parse(t.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("client", "chromium")
	q.Set("lang", t.cfg.Language)
	if t.cfg.Key != "" {
		q.Set("key", t.cfg.Key)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(clip.L16()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/l16; rate="+strconv.Itoa(clip.SampleRate))

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("speech service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	text, err := bestTranscript(resp.Body)
	if err != nil {
		return "", err
	}
	t.logger.Debug("audio transcribed", ports.String("text", text))
	return text, nil
}

// bestTranscript scans every response line and keeps the alternative with the
// highest confidence. Alternatives without a confidence rank below any scored one.
func bestTranscript(r io.Reader) (string, error) {
	best := ""
	bestScore := -1.0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rr recognizeResponse
		if err := json.Unmarshal([]byte(line), &rr); err != nil {
			return "", fmt.Errorf("decode response line: %w", err)
		}
		for _, res := range rr.Result {
			for _, alt := range res.Alternative {
				text := strings.TrimSpace(alt.Transcript)
				if text == "" {
					continue
				}
				score := 0.0
				if alt.Confidence != nil {
					score = *alt.Confidence
				}
				if score > bestScore {
					best, bestScore = text, score
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if best == "" {
		return "", domain.ErrUnrecognized
	}
	return best, nil
}
