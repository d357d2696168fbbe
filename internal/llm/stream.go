package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Response mirrors one chat-completion stream payload.
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice is a single completion choice within a payload.
type Choice struct {
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

// Delta carries an incremental content fragment.
type Delta struct {
	Content string `json:"content"`
}

// StreamChunk represents a single decoded event from the stream.
type StreamChunk struct {
	ID           string
	Content      string
	FinishReason string
	Done         bool
}

// StreamParser handles parsing of Server-Sent Events (SSE) streams.
type StreamParser struct {
	scanner *bufio.Scanner
}

// NewStreamParser creates a new stream parser.
func NewStreamParser(reader io.Reader) *StreamParser {
	scanner := bufio.NewScanner(reader)
	// A single delta line can carry a large fragment.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamParser{scanner: scanner}
}

// Next reads the next chunk from the stream. Lines that are not data events
// or fail to decode are skipped.
func (p *StreamParser) Next() (*StreamChunk, error) {
	for p.scanner.Scan() {
		line := p.scanner.Text()

		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		// Literal end-of-stream marker.
		if data == "[DONE]" {
			return &StreamChunk{Done: true}, nil
		}

		var resp Response
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			continue
		}

		chunk := &StreamChunk{ID: resp.ID}
		if len(resp.Choices) > 0 {
			choice := resp.Choices[0]
			chunk.Content = choice.Delta.Content
			chunk.FinishReason = choice.FinishReason
			chunk.Done = choice.FinishReason != ""
		}
		return chunk, nil
	}

	if err := p.scanner.Err(); err != nil {
		return nil, err
	}

	// End of stream without a [DONE] marker.
	return &StreamChunk{Done: true}, nil
}
