package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ReportPath returns the report file that belongs to output: the output
// path with its extension replaced by .report.yaml.
func ReportPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".report.yaml"
}

// WriteReport writes s as YAML to path.
func WriteReport(path string, s *Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "export: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write report %s", path)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read report %s", path)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrapf(err, "export: parse report %s", path)
	}
	return &s, nil
}
