package raster

import (
	"fmt"
	"sort"
	"strings"
)

// Backend identifies which tool family serves a pansharp method.
type Backend string

const (
	BackendOTB  Backend = "otb"
	BackendGDAL Backend = "gdal"
)

// methodBackends enumerates the interchangeable pansharp methods. The
// selector prefix names the backend; the remainder is the algorithm (or
// resampling) argument handed to the tool.
var methodBackends = map[string]Backend{
	"otb-bayes":     BackendOTB,
	"otb-lmvm":      BackendOTB,
	"otb-rcs":       BackendOTB,
	"gdal-cubic":    BackendGDAL,
	"gdal-bilinear": BackendGDAL,
	"gdal-lanczos":  BackendGDAL,
	"gdal-average":  BackendGDAL,
}

// DefaultMethod is used when the configuration leaves the pansharp
// method unset.
const DefaultMethod = "otb-bayes"

// MethodBackend resolves a pansharp method to its backend, failing fast
// on unknown methods before any work starts.
func MethodBackend(method string) (Backend, error) {
	normalized := strings.ToLower(strings.TrimSpace(method))
	if normalized == "" {
		normalized = DefaultMethod
	}
	backend, ok := methodBackends[normalized]
	if !ok {
		return "", fmt.Errorf("%w: unknown pansharp method %q (known: %s)",
			ErrConfiguration, method, strings.Join(KnownMethods(), ", "))
	}
	return backend, nil
}

// KnownMethods lists every accepted pansharp method, sorted.
func KnownMethods() []string {
	methods := make([]string, 0, len(methodBackends))
	for name := range methodBackends {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}
