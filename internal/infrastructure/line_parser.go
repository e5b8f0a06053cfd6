package infrastructure

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/yt-download-go/internal/domain"
)

var recordValidator = validator.New()

// ParsedLine is one complete worker output line after classification.
// Record is only meaningful when Kind is not KindUnrecognized.
type ParsedLine struct {
	Kind   domain.RecordKind
	Record domain.ProgressRecord
	Text   string
}

// LineParser splits worker stdout into lines and classifies each one.
// A trailing fragment without a newline is held until more data arrives
// or Flush is called at end of stream.
type LineParser struct {
	pending []byte
}

// NewLineParser creates an empty parser
func NewLineParser() *LineParser {
	return &LineParser{}
}

// Feed appends chunk to the buffer and returns every line it completes
func (p *LineParser) Feed(chunk []byte) []ParsedLine {
	p.pending = append(p.pending, chunk...)

	var lines []ParsedLine
	for {
		idx := bytes.IndexByte(p.pending, '\n')
		if idx < 0 {
			break
		}
		raw := p.pending[:idx]
		p.pending = p.pending[idx+1:]
		if line, ok := parseRaw(raw); ok {
			lines = append(lines, line)
		}
	}

	if len(p.pending) == 0 {
		p.pending = nil
	}
	return lines
}

// Flush returns the unterminated trailing fragment, if any, as a final line
func (p *LineParser) Flush() []ParsedLine {
	raw := p.pending
	p.pending = nil
	if line, ok := parseRaw(raw); ok {
		return []ParsedLine{line}
	}
	return nil
}

func parseRaw(raw []byte) (ParsedLine, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return ParsedLine{}, false
	}
	return ClassifyLine(text), true
}

type wireRecord struct {
	Progress *float64 `json:"progress"`
	Status   string   `json:"status"`
	Filename string   `json:"filename"`
	Error    string   `json:"error"`
}

// ClassifyLine decodes one trimmed line into a tagged record.
//
// Lines that are not JSON objects, or whose fields do not form a progress,
// success or failure record, are KindUnrecognized. An "error" field without
// progress -1 is worker chatter (for example a progress-hook hiccup), not a
// terminal failure.
func ClassifyLine(text string) ParsedLine {
	unrecognized := ParsedLine{Kind: domain.KindUnrecognized, Text: text}
	if !strings.HasPrefix(text, "{") {
		return unrecognized
	}

	var wire wireRecord
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return unrecognized
	}

	record := domain.ProgressRecord{
		Progress: wire.Progress,
		Status:   wire.Status,
		Filename: wire.Filename,
		Error:    wire.Error,
	}

	switch {
	case record.Error != "":
		if record.IsFailure() {
			return ParsedLine{Kind: domain.KindFailure, Record: record, Text: text}
		}
		return unrecognized
	case record.IsSuccess():
		if record.Progress != nil && recordValidator.Var(*record.Progress, "gte=0,lte=100") != nil {
			return unrecognized
		}
		return ParsedLine{Kind: domain.KindSuccess, Record: record, Text: text}
	case record.Progress != nil:
		if recordValidator.Var(*record.Progress, "gte=0,lte=100") != nil {
			return unrecognized
		}
		return ParsedLine{Kind: domain.KindProgress, Record: record, Text: text}
	default:
		return unrecognized
	}
}
