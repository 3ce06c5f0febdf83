package labelformat

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Parse parses a .label file from a byte slice
func Parse(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse label job: %w", err)
	}

	if job.Spec == "" {
		job.Spec = DefaultSpecName
	}
	if job.Copies == 0 {
		job.Copies = 1
	}

	if err := Validate(&job); err != nil {
		return nil, err
	}

	return &job, nil
}

// ParseFile parses a .label file from disk
func ParseFile(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}

	return Parse(data)
}

// ToJSON converts a Job to JSON bytes
func (j *Job) ToJSON() ([]byte, error) {
	return json.MarshalIndent(j, "", "  ")
}

// SaveToFile saves a Job to a file
func (j *Job) SaveToFile(path string) error {
	data, err := j.ToJSON()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// FormatPrice renders a minor-unit amount the way the label prints it.
// Whole amounts print without decimals.
func FormatPrice(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	if minor%100 == 0 {
		return fmt.Sprintf("%s%d", sign, minor/100)
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseAmount parses a decimal amount with at most two decimals ("1250", "12.5")
// into hundredths. Prices become minor units and percentages become basis points.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && !hasFrac {
		return 0, fmt.Errorf("invalid amount: %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 || (hasFrac && frac == "") {
		return 0, fmt.Errorf("invalid amount: %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("invalid amount: %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid amount: %q", s)
	}
	return w*100 + f, nil
}
