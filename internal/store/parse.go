package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xcawolfe-amzn/zax/internal/errkind"
)

// vitestReport is the subset of `vitest run --reporter=json` output this
// store consumes.
type vitestReport struct {
	TestResults []struct {
		Name             string `json:"name"`
		AssertionResults []struct {
			Status          string   `json:"status"`
			FullName        string   `json:"fullName"`
			Title           string   `json:"title"`
			FailureMessages []string `json:"failureMessages"`
		} `json:"assertionResults"`
	} `json:"testResults"`
}

// ParseVitestReport reads a vitest JSON report and returns one TestFailure
// per failing assertion, scoped to pkg (the package_scope of the ingesting
// manifest, stored verbatim as the row's package column).
func ParseVitestReport(path, pkg string) ([]TestFailure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.ParseError, "reading vitest report %q: %v", path, err)
	}
	var report vitestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errkind.Wrap(errkind.ParseError, "parsing vitest report %q: %v", path, err)
	}

	var failures []TestFailure
	for _, tr := range report.TestResults {
		for _, ar := range tr.AssertionResults {
			if ar.Status != "failed" {
				continue
			}
			name := ar.FullName
			if name == "" {
				name = ar.Title
			}
			msg := ""
			if len(ar.FailureMessages) > 0 {
				msg = ar.FailureMessages[0]
			}
			failures = append(failures, TestFailure{
				StableID: tr.Name + "::" + name,
				TestID:   name,
				File:     tr.Name,
				Message:  msg,
				Package:  pkg,
			})
		}
	}
	return failures, nil
}

// eslintFileReport is one element of eslint's `-f json` array output.
type eslintFileReport struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID    string `json:"ruleId"`
		Message   string `json:"message"`
		Line      int    `json:"line"`
		Column    int    `json:"column"`
		EndLine   int    `json:"endLine"`
		EndColumn int    `json:"endColumn"`
	} `json:"messages"`
}

// ParseESLintReport reads an eslint JSON report and returns one Finding per
// reported message.
func ParseESLintReport(path, pkg string) ([]Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.Wrap(errkind.ParseError, "reading eslint report %q: %v", path, err)
	}
	var reports []eslintFileReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, errkind.Wrap(errkind.ParseError, "parsing eslint report %q: %v", path, err)
	}

	var findings []Finding
	for _, fr := range reports {
		for _, m := range fr.Messages {
			rule := m.RuleID
			if rule == "" {
				rule = "(none)"
			}
			findings = append(findings, Finding{
				StableID:    fmt.Sprintf("%s::%s::%d:%d", fr.FilePath, rule, m.Line, m.Column),
				Tool:        "eslint",
				Rule:        rule,
				File:        fr.FilePath,
				StartLine:   m.Line,
				StartColumn: m.Column,
				EndLine:     m.EndLine,
				EndColumn:   m.EndColumn,
				Message:     m.Message,
				Package:     pkg,
			})
		}
	}
	return findings, nil
}
