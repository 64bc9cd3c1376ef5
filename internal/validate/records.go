package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spycheck/pkg/logging"
)

const subsystem = "validate"

// Record is one captured message, decoded from a JSONL line.
type Record map[string]any

// ReadRecords parses a JSONL file into its records, in file order. Blank
// lines are skipped and lines that do not parse are logged and skipped. A
// missing file is reported through the returned error; callers distinguish it
// with errors.Is(err, fs.ErrNotExist).
func ReadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []Record
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			logging.Warn(subsystem, "Skipping unparsable record at %s:%d: %v", path, i+1, err)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// WriteRecords writes records as JSONL, one compact object per line, creating
// the parent directory if needed.
func WriteRecords(path string, records []Record) error {
	var b strings.Builder
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating baseline directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// compactJSON renders a record the way it appears on a JSONL line.
func compactJSON(rec Record) string {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Sprintf("<unencodable record: %v>", err)
	}
	return string(data)
}

// prettyJSON renders a record indented for the detailed diagnostics.
func prettyJSON(rec Record) string {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unencodable record: %v>", err)
	}
	return string(data)
}
