package tools

import (
	"fmt"
	"regexp"
	"strings"
)

// Vars holds the values substituted into configured command templates.
type Vars struct {
	RunDir      string
	RunName     string
	Workspace   string
	SampleSheet string
	DemuxDir    string
	QCDir       string
	Operator    string
}

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

func (v Vars) lookup() map[string]string {
	return map[string]string{
		"{run_dir}":      v.RunDir,
		"{run_name}":     v.RunName,
		"{workspace}":    v.Workspace,
		"{sample_sheet}": v.SampleSheet,
		"{demux_dir}":    v.DemuxDir,
		"{qc_dir}":       v.QCDir,
		"{operator}":     v.Operator,
	}
}

// KnownPlaceholders lists the placeholders accepted in command templates.
func KnownPlaceholders() []string {
	return []string{"{run_dir}", "{run_name}", "{workspace}", "{sample_sheet}", "{demux_dir}", "{qc_dir}", "{operator}"}
}

// CheckTemplate reports the first unknown placeholder in argv.
func CheckTemplate(argv []string) error {
	known := Vars{}.lookup()
	for _, arg := range argv {
		for _, token := range placeholderPattern.FindAllString(arg, -1) {
			if _, ok := known[token]; !ok {
				return fmt.Errorf("unknown placeholder %s in %q", token, arg)
			}
		}
	}
	return nil
}

// Expand substitutes placeholders in argv. The first element is the binary.
func Expand(argv []string, vars Vars) (string, []string, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return "", nil, fmt.Errorf("command not configured")
	}
	if err := CheckTemplate(argv); err != nil {
		return "", nil, err
	}
	values := vars.lookup()
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = placeholderPattern.ReplaceAllStringFunc(arg, func(token string) string {
			return values[token]
		})
	}
	return out[0], out[1:], nil
}
