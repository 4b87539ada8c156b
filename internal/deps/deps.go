// Package deps checks that the external raster tools a run will invoke
// are actually installed before any work starts.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"rasterprep/internal/raster"
)

// Requirement defines an external tool rasterprep shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForBackend lists the tools a run with the given pansharp backend
// needs. Merge, split and COG conversion always go through
// gdal_translate and gdal_merge; the pansharpen and rescale stages
// depend on the selected backend.
func ForBackend(backend raster.Backend) []Requirement {
	reqs := []Requirement{
		{
			Name:        "gdal_translate",
			Command:     "gdal_translate",
			Description: "Band splitting and COG conversion",
		},
		{
			Name:        "gdal_merge",
			Command:     "gdal_merge.py",
			Description: "Tile mosaicking",
		},
	}
	switch backend {
	case raster.BackendGDAL:
		reqs = append(reqs, Requirement{
			Name:        "gdal_pansharpen",
			Command:     "gdal_pansharpen.py",
			Description: "GDAL pansharpening backend",
		})
	default:
		reqs = append(reqs,
			Requirement{
				Name:        "otbcli_BundleToPerfectSensor",
				Command:     "otbcli_BundleToPerfectSensor",
				Description: "Orfeo Toolbox pansharpening backend",
			},
			Requirement{
				Name:        "otbcli_DynamicConvert",
				Command:     "otbcli_DynamicConvert",
				Description: "Orfeo Toolbox 8-bit rescaling",
			})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required tools that are not
// available.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}

// CheckBackend is the fail-fast entry point used before a real run:
// it resolves the backend for method and errors when a required tool
// is absent.
func CheckBackend(method string) error {
	backend, err := raster.MethodBackend(method)
	if err != nil {
		return err
	}
	if missing := MissingRequired(CheckBinaries(ForBackend(backend))); len(missing) > 0 {
		return fmt.Errorf("%w: required tools not installed: %s",
			raster.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}
