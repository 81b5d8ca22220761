package deps

import (
	"strings"

	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/pep440"
)

// Environment is the fixed variable set markers evaluate against. It
// models the install target, not the machine running the tool.
type Environment struct {
	OSName                       string
	SysPlatform                  string
	PlatformMachine              string
	PlatformPythonImplementation string
	PlatformRelease              string
	PlatformSystem               string
	PlatformVersion              string
	PythonVersion                string // major.minor
	PythonFullVersion            string
	ImplementationName           string
	ImplementationVersion        string
}

// NewEnvironment builds an environment for a CPython of the given full
// version on the given platform ("linux", "darwin", or "win32").
func NewEnvironment(pythonVersion, sysPlatform string) (*Environment, error) {
	if _, err := pep440.Parse(pythonVersion); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "python version %q", pythonVersion)
	}
	parts := strings.SplitN(pythonVersion, ".", 3)
	short := pythonVersion
	if len(parts) >= 2 {
		short = parts[0] + "." + parts[1]
	}

	e := &Environment{
		OSName:                       "posix",
		SysPlatform:                  "linux",
		PlatformMachine:              "x86_64",
		PlatformPythonImplementation: "CPython",
		PlatformSystem:               "Linux",
		PythonVersion:                short,
		PythonFullVersion:            pythonVersion,
		ImplementationName:           "cpython",
		ImplementationVersion:        pythonVersion,
	}
	switch sysPlatform {
	case "", "linux":
		if strings.HasPrefix(short, "2") {
			e.SysPlatform = "linux2"
		}
	case "win32":
		e.SysPlatform = "win32"
		e.PlatformSystem = "Windows"
		e.OSName = "nt"
	case "darwin":
		e.SysPlatform = "darwin"
		e.PlatformSystem = "Darwin"
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown sys_platform %q", sysPlatform)
	}
	return e, nil
}

// Map returns the marker variable bindings.
func (e *Environment) Map() map[string]string {
	return map[string]string{
		"os_name":                        e.OSName,
		"sys_platform":                   e.SysPlatform,
		"platform_machine":               e.PlatformMachine,
		"platform_python_implementation": e.PlatformPythonImplementation,
		"platform_release":               e.PlatformRelease,
		"platform_system":                e.PlatformSystem,
		"platform_version":               e.PlatformVersion,
		"python_version":                 e.PythonVersion,
		"python_full_version":            e.PythonFullVersion,
		"implementation_name":            e.ImplementationName,
		"implementation_version":         e.ImplementationVersion,
		"extra":                          "",
	}
}

// Python returns the parsed full interpreter version.
func (e *Environment) Python() *pep440.Version {
	return pep440.MustParse(e.PythonFullVersion)
}
