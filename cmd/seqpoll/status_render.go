package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"seqpoll/internal/deps"
	"seqpoll/internal/runstatus"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.English)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// statusLabel turns a store value such as in_progress into "In Progress".
func statusLabel(status runstatus.Status) string {
	value := strings.TrimSpace(string(status))
	if value == "" {
		return "Unknown"
	}
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func statusKindFor(status runstatus.Status) statusKind {
	switch status {
	case runstatus.StatusComplete:
		return statusOK
	case runstatus.StatusFailed:
		return statusError
	case runstatus.StatusInitial, runstatus.StatusReady, runstatus.StatusInProgress:
		return statusInfo
	default:
		// complete_warnings, operator closures and unrecognized values
		return statusWarn
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	if len(statuses) == 0 {
		return nil
	}
	missing := deps.Missing(statuses)
	summaryKind := statusOK
	summary := fmt.Sprintf("%d of %d available", len(statuses)-len(missing), len(statuses))
	if len(missing) > 0 {
		summaryKind = statusWarn
	}
	lines := []string{renderStatusLine("Tools", summaryKind, summary, colorize)}
	for _, status := range statuses {
		kind := statusOK
		if !status.Available {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(status.Name, kind, status.Detail, colorize))
	}
	return lines
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
