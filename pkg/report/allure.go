package report

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
)

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string              `json:"uuid"`
	HistoryID     string              `json:"historyId"`
	FullName      string              `json:"fullName"`
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	Labels        []AllureLabel       `json:"labels"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Steps         []AllureStep        `json:"steps"`
}

// AllureStep represents a step within a test result.
type AllureStep struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Stage  string `json:"stage"`
	Start  int64  `json:"start"`
	Stop   int64  `json:"stop"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds failure message and trace.
type AllureStatusDetails struct {
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex"`
}

// GenerateAllure generates Allure-compatible report files in <reportDir>/allure-results/.
func GenerateAllure(reportDir string) error {
	index, tests, err := ReadReport(reportDir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	allureDir := filepath.Join(reportDir, "allure-results")
	if err := ensureDir(allureDir); err != nil {
		return fmt.Errorf("create allure-results dir: %w", err)
	}

	for i, entry := range index.Tests {
		var detail *TestDetail
		if i < len(tests) {
			detail = &tests[i]
		}
		result := buildAllureResult(&entry, detail)

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal allure result for %s: %w", entry.ID, err)
		}
		path := filepath.Join(allureDir, entry.ID+"-result.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write allure result %s: %w", entry.ID, err)
		}
	}

	if err := writeAllureCategories(allureDir); err != nil {
		return err
	}
	return writeAllureEnvironment(allureDir, index)
}

// buildAllureResult builds an AllureResult from a test entry and its detail.
func buildAllureResult(entry *TestEntry, detail *TestDetail) AllureResult {
	var startMs, stopMs int64
	if entry.StartTime != nil {
		startMs = entry.StartTime.UnixMilli()
	}
	if entry.EndTime != nil {
		stopMs = entry.EndTime.UnixMilli()
	} else if entry.StartTime != nil && entry.Duration != nil {
		stopMs = startMs + *entry.Duration
	}

	suiteName := entry.Name
	if i := strings.LastIndex(entry.Title, " > "); i >= 0 {
		suiteName = entry.Title[:i]
	}
	labels := []AllureLabel{
		{Name: "suite", Value: suiteName},
		{Name: "parentSuite", Value: filepath.Base(entry.SourceFile)},
		{Name: "framework", Value: "cyrunner"},
		{Name: "severity", Value: "normal"},
	}
	for _, tag := range entry.Tags {
		labels = append(labels, AllureLabel{Name: "tag", Value: tag})
	}

	var details AllureStatusDetails
	if entry.Error != nil {
		details.Message = *entry.Error
	}

	steps := []AllureStep{}
	if detail != nil {
		for _, cmd := range detail.Commands {
			steps = append(steps, buildAllureStep(cmd))
		}
		if detail.Error != nil {
			details.Trace = detail.Error.Type + ": " + detail.Error.Message
		}
	}

	return AllureResult{
		UUID:          entry.ID,
		HistoryID:     fnv32aHash(entry.Title + ":" + entry.SourceFile),
		FullName:      entry.Title,
		Name:          entry.Name,
		Status:        mapAllureStatus(entry.Status),
		Stage:         "finished",
		Start:         startMs,
		Stop:          stopMs,
		Labels:        labels,
		StatusDetails: details,
		Steps:         steps,
	}
}

func buildAllureStep(cmd Command) AllureStep {
	name := cmd.Type
	if cmd.Label != "" {
		name = cmd.Type + ": " + cmd.Label
	}
	if cmd.Phase != "" {
		name = "[" + string(cmd.Phase) + "] " + name
	}

	var startMs, stopMs int64
	if cmd.StartTime != nil {
		startMs = cmd.StartTime.UnixMilli()
	}
	if cmd.EndTime != nil {
		stopMs = cmd.EndTime.UnixMilli()
	} else if cmd.StartTime != nil && cmd.Duration != nil {
		stopMs = startMs + *cmd.Duration
	}

	return AllureStep{
		Name:   name,
		Status: mapAllureStatus(cmd.Status),
		Stage:  "finished",
		Start:  startMs,
		Stop:   stopMs,
	}
}

// mapAllureStatus maps report Status to Allure status string. Allure calls
// unexpected errors "broken".
func mapAllureStatus(s Status) string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "broken"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// fnv32aHash returns a hex-encoded FNV-32a hash of the input string.
func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// writeAllureCategories writes categories.json for failure categorization.
func writeAllureCategories(allureDir string) error {
	categories := []AllureCategory{
		{Name: "Assertion Failed", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*expected.*|.*assert.*"},
		{Name: "Element Not Found", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*no element matches.*|.*strict mode violation.*"},
		{Name: "Timeout", MatchedStatuses: []string{"broken", "failed"}, MessageRegex: "(?i).*timeout.*|.*timed out.*"},
		{Name: "Wrong Subject", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*requires a .* subject.*"},
		{Name: "Unknown Command", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*unknown (command|assertion).*"},
		{Name: "Driver Error", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*failed.*"},
	}

	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	if err := os.WriteFile(filepath.Join(allureDir, "categories.json"), data, 0o644); err != nil {
		return fmt.Errorf("write categories.json: %w", err)
	}
	return nil
}

// writeAllureEnvironment writes environment.properties with browser/runner metadata.
func writeAllureEnvironment(allureDir string, index *Index) error {
	var b strings.Builder
	b.WriteString("framework=cyrunner\n")
	if index.RunID != "" {
		fmt.Fprintf(&b, "run.id=%s\n", index.RunID)
	}
	if index.Browser.Name != "" {
		fmt.Fprintf(&b, "browser.name=%s\n", index.Browser.Name)
		fmt.Fprintf(&b, "browser.headless=%v\n", index.Browser.Headless)
	}
	if index.Browser.BaseURL != "" {
		fmt.Fprintf(&b, "browser.baseUrl=%s\n", index.Browser.BaseURL)
	}
	if index.Runner.Version != "" {
		fmt.Fprintf(&b, "runner.version=%s\n", index.Runner.Version)
	}
	if index.Runner.Driver != "" {
		fmt.Fprintf(&b, "runner.driver=%s\n", index.Runner.Driver)
	}

	path := filepath.Join(allureDir, "environment.properties")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write environment.properties: %w", err)
	}
	return nil
}
