// Package selftest validates that the conversion pipeline can run in the
// current environment: prerequisite tools, required project structure, a
// real conversion against a scratch copy, and converted component counts.
// The result is a machine-readable JSON report consumed by CI.
package selftest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// CheckStatus is the tri-state result of a single check or section.
type CheckStatus string

const (
	StatusPass    CheckStatus = "pass"
	StatusFail    CheckStatus = "fail"
	StatusSkipped CheckStatus = "skipped"
)

// Check is one named probe with an optional human-readable detail.
type Check struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// Section groups related checks; its status is fail if any check failed.
type Section struct {
	Status CheckStatus `json:"status"`
	Checks []Check     `json:"checks,omitempty"`
}

func (s *Section) add(name string, status CheckStatus, detail string) {
	s.Checks = append(s.Checks, Check{Name: name, Status: status, Detail: detail})
}

func (s *Section) settle() {
	s.Status = StatusPass
	for _, c := range s.Checks {
		if c.Status == StatusFail {
			s.Status = StatusFail
			return
		}
	}
}

func (s *Section) skip(reason string) {
	s.Status = StatusSkipped
	s.Checks = append(s.Checks, Check{Name: "skipped", Status: StatusSkipped, Detail: reason})
}

// Summary holds the four check sections in report order.
type Summary struct {
	Prerequisites Section `json:"prerequisites"`
	Structure     Section `json:"structure"`
	Conversion    Section `json:"conversion"`
	Components    Section `json:"components"`
}

// Report is the self-test result document.
type Report struct {
	Timestamp time.Time   `json:"timestamp"`
	Project   string      `json:"project"`
	Workflow  string      `json:"workflow"`
	Status    CheckStatus `json:"status"`
	Summary   Summary     `json:"summary"`
}

// Passed reports whether every executed section passed.
func (r *Report) Passed() bool { return r.Status == StatusPass }

// settle derives the overall status from the sections. Skipped sections do
// not pass the report on their own but only count as failure when caused by
// an earlier failing section, which that section already records.
func (r *Report) settle() {
	r.Status = StatusPass
	for _, s := range []Section{r.Summary.Prerequisites, r.Summary.Structure, r.Summary.Conversion, r.Summary.Components} {
		if s.Status == StatusFail {
			r.Status = StatusFail
			return
		}
	}
}

// Write renders the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFile writes the report JSON to the given path.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return r.Write(f)
}
