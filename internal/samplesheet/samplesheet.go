package samplesheet

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Blank reports whether the sheet at path has no non-blank lines. A missing
// file counts as blank.
func Blank(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("read sample sheet: %w", err)
	}
	return blankContent(data), nil
}

func blankContent(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}

// Summary describes a sample sheet for logs and messages.
type Summary struct {
	Format    string
	Libraries int
	Lanes     []int
	Lines     int
}

func (s Summary) String() string {
	if s.Format != "yaml" {
		return fmt.Sprintf("%d lines (%s)", s.Lines, s.Format)
	}
	lanes := make([]string, len(s.Lanes))
	for i, lane := range s.Lanes {
		lanes[i] = fmt.Sprint(lane)
	}
	return fmt.Sprintf("%d libraries on lanes %s", s.Libraries, strings.Join(lanes, ","))
}

type yamlSheet struct {
	Libraries []struct {
		Name  string `yaml:"name"`
		Lane  int    `yaml:"lane"`
		Lanes []int  `yaml:"lanes"`
	} `yaml:"libraries"`
}

// Summarize counts libraries and lanes in a YAML sheet. Sheets that are not
// YAML with a libraries list are summarized by line count only.
func Summarize(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read sample sheet: %w", err)
	}
	summary := Summary{Format: "text", Lines: countLines(data)}

	var sheet yamlSheet
	if err := yaml.Unmarshal(data, &sheet); err != nil || len(sheet.Libraries) == 0 {
		return summary, nil
	}
	laneSet := map[int]struct{}{}
	for _, lib := range sheet.Libraries {
		if lib.Lane > 0 {
			laneSet[lib.Lane] = struct{}{}
		}
		for _, lane := range lib.Lanes {
			if lane > 0 {
				laneSet[lane] = struct{}{}
			}
		}
	}
	summary.Format = "yaml"
	summary.Libraries = len(sheet.Libraries)
	for lane := range laneSet {
		summary.Lanes = append(summary.Lanes, lane)
	}
	sort.Ints(summary.Lanes)
	return summary, nil
}

func countLines(data []byte) int {
	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
