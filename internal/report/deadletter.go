package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"streamsight/internal/validate"
)

type deadLetterLine struct {
	LineNumber int               `json:"line_number"`
	Reason     string            `json:"reason"`
	Field      string            `json:"field,omitempty"`
	Row        map[string]string `json:"row"`
}

// writeDeadLetters exports rejected rows as JSONL, one object per line, in
// arrival order.
func writeDeadLetters(path string, rows []validate.Rejection) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	enc := json.NewEncoder(buf)
	for _, r := range rows {
		line := deadLetterLine{
			LineNumber: r.Line,
			Reason:     string(r.Reason),
			Field:      r.Field,
			Row:        r.Fields,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("encode dead letter: %w", err)
		}
	}
	return buf.Flush()
}
