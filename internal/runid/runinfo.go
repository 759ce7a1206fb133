package runid

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RunInfoFile is the instrument metadata file that names the flow cell.
const RunInfoFile = "RunInfo.xml"

type runInfo struct {
	XMLName xml.Name `xml:"RunInfo"`
	Run     struct {
		Flowcell string `xml:"Flowcell"`
	} `xml:"Run"`
}

// ReadFlowcell returns the Run/Flowcell value of runDir/RunInfo.xml. The
// instrument records the flow cell without the slot letter that prefixes it
// in the directory name. A missing file or element yields "" and no error.
func ReadFlowcell(runDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(runDir, RunInfoFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read run info: %w", err)
	}
	var info runInfo
	if err := xml.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("parse run info: %w", err)
	}
	return strings.TrimSpace(info.Run.Flowcell), nil
}
