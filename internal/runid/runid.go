package runid

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMalformedRunName reports a run directory name that cannot be decoded.
var ErrMalformedRunName = errors.New("malformed run name")

// Identity is the structured form of a run directory name such as
// 200101_INSTR1_0001_AVENDOR1.
type Identity struct {
	Name       string
	Date       string
	Year       int
	Instrument string
	RunNumber  string
	VendorID   string
	// FlankCode holds the single-letter flow cell position when the instrument
	// writes it as its own field (e.g. 200101_INSTR_0001_A_HVENDOR).
	FlankCode string
}

// Parse decodes a run directory name. Only the base name is considered, so a
// full path is accepted too.
func Parse(name string) (Identity, error) {
	base := filepath.Base(strings.TrimRight(strings.TrimSpace(name), string(filepath.Separator)))
	fields := strings.Split(base, "_")
	if len(fields) < 4 {
		return Identity{}, fmt.Errorf("%w: %q has %d fields, need at least 4", ErrMalformedRunName, base, len(fields))
	}
	date := fields[0]
	if len(date) != 6 || !allDigits(date) {
		return Identity{}, fmt.Errorf("%w: %q does not start with a 6-digit date", ErrMalformedRunName, base)
	}
	yy, _ := strconv.Atoi(date[:2])

	id := Identity{
		Name:       base,
		Date:       date,
		Year:       2000 + yy,
		Instrument: fields[1],
		RunNumber:  fields[2],
		VendorID:   fields[3],
	}
	if isFlankCode(fields[3]) {
		if len(fields) < 5 || fields[4] == "" {
			return Identity{}, fmt.Errorf("%w: %q has flank code %q but no vendor id", ErrMalformedRunName, base, fields[3])
		}
		id.FlankCode = fields[3]
		id.VendorID = fields[4]
	}
	if id.VendorID == "" {
		return Identity{}, fmt.Errorf("%w: %q has an empty vendor id", ErrMalformedRunName, base)
	}
	return id, nil
}

// WorkspaceDir returns root/<year>/<run-name>.
func (id Identity) WorkspaceDir(root string) string {
	return filepath.Join(root, strconv.Itoa(id.Year), id.Name)
}

func isFlankCode(field string) bool {
	if len(field) != 1 {
		return false
	}
	c := field[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
