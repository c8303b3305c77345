package checks

import (
	"os"
)

// OutputReport tells whether images can be written to the output directory.
type OutputReport struct {
	Dir      string `json:"dir"`
	Exists   bool   `json:"exists"`
	Writable bool   `json:"writable"`
	Error    string `json:"error,omitempty"`
}

// CheckOutput probes the output directory with a temporary file. A missing
// directory is reported, not created.
func CheckOutput(dir string) *OutputReport {
	report := &OutputReport{Dir: dir}

	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			report.Error = err.Error()
		}
		return report
	}
	if !info.IsDir() {
		report.Error = dir + " is not a directory"
		return report
	}
	report.Exists = true

	probe, err := os.CreateTemp(dir, ".regen-probe-*")
	if err != nil {
		report.Error = err.Error()
		return report
	}
	probe.Close()
	os.Remove(probe.Name())
	report.Writable = true
	return report
}
