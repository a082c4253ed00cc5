package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Output that does not have the agreed report shape.
type MalformedOutputError struct {
	Reason string
	Err    error
	Output []byte // Truncated
}

const maxErrOutput = 256

func (e *MalformedOutputError) Error() string {
	msg := "malformed report: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

func malformed(output []byte, reason string, err error) error {
	if len(output) > maxErrOutput {
		output = output[:maxErrOutput]
	}

	return &MalformedOutputError{Reason: reason, Err: err, Output: output}
}

// Parses and validates a report. Any deviation from the agreed shape is an
// error; a partial report is never returned.
func Decode(r io.Reader) (*Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	return DecodeBytes(data)
}

func DecodeBytes(data []byte) (*Report, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed(data, "empty output", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed(data, "not a JSON object", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(data, "trailing data after report", nil)
	}

	identities, ok := raw["identities"]
	if !ok || isNull(identities) {
		return nil, malformed(data, `missing "identities"`, nil)
	}

	commits, ok := raw["commits"]
	if !ok || isNull(commits) {
		return nil, malformed(data, `missing "commits"`, nil)
	}

	var report Report
	if err := json.Unmarshal(identities, &report.Identities); err != nil {
		return nil, malformed(data, `"identities" is not an array of identities`, err)
	}
	if err := json.Unmarshal(commits, &report.Commits); err != nil {
		return nil, malformed(data, `"commits" is not an object of commit stats`, err)
	}

	if err := validate(&report); err != nil {
		return nil, malformed(data, err.Error(), nil)
	}

	return &report, nil
}

func validate(r *Report) error {
	ids := map[string]bool{}
	for i, identity := range r.Identities {
		if identity.ID == "" {
			return fmt.Errorf("identity %d has no id", i)
		}
		if ids[identity.ID] {
			return fmt.Errorf("duplicate identity id %q", identity.ID)
		}
		ids[identity.ID] = true

		if identity.Names == nil {
			r.Identities[i].Names = []string{}
		}
		if identity.Emails == nil {
			r.Identities[i].Emails = []string{}
		}
	}

	for id := range r.Commits {
		if !ids[id] {
			return fmt.Errorf("commits reference unknown identity %q", id)
		}
	}

	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
