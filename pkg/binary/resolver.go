// Package binary locates the gateway executable for the running platform.
package binary

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

const BinaryName = "xmtpd-gateway"

// Resolver produces an absolute path to the gateway executable.
type Resolver interface {
	Resolve() (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func() (string, error)

func (f ResolverFunc) Resolve() (string, error) { return f() }

// Static always resolves to the same path without checking it.
func Static(path string) Resolver {
	return ResolverFunc(func() (string, error) { return path, nil })
}

var supportedPlatforms = map[string]bool{
	"linux/amd64":   true,
	"linux/arm64":   true,
	"darwin/amd64":  true,
	"darwin/arm64":  true,
	"windows/amd64": true,
}

// PlatformResolver looks for the per-platform gateway package. Lookup
// order: Override, each of SearchDirs, then PATH.
type PlatformResolver struct {
	Override   string
	SearchDirs []string
	// GOOS and GOARCH default to the running platform.
	GOOS   string
	GOARCH string
	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// PackageName is the platform package directory, e.g. xmtpd-gateway-linux-amd64.
func PackageName(goos, goarch string) string {
	return fmt.Sprintf("%s-%s-%s", BinaryName, goos, goarch)
}

func executableName(goos string) string {
	if goos == "windows" {
		return BinaryName + ".exe"
	}
	return BinaryName
}

func (r *PlatformResolver) Resolve() (string, error) {
	if r.Override != "" {
		return resolveOverride(r.Override)
	}

	goos, goarch := r.GOOS, r.GOARCH
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	if !supportedPlatforms[goos+"/"+goarch] {
		return "", &ResolveError{
			Platform: goos,
			Arch:     goarch,
			Reason:   "unsupported platform/architecture",
			Hint:     "set binary.path to a gateway executable built for this platform",
		}
	}

	pkg := PackageName(goos, goarch)
	exe := executableName(goos)
	for _, dir := range r.SearchDirs {
		candidate := filepath.Join(dir, pkg, "bin", exe)
		if isRegularFile(candidate) {
			return filepath.Abs(candidate)
		}
	}

	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if path, err := lookPath(exe); err == nil {
		return filepath.Abs(path)
	}

	return "", &ResolveError{
		Platform: goos,
		Arch:     goarch,
		Package:  pkg,
		Reason:   "no gateway binary found",
		Hint:     "install package " + pkg + " or set binary.path",
	}
}

func resolveOverride(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &ResolveError{Path: path, Reason: "invalid override path", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &ResolveError{Path: abs, Reason: "override path does not exist", Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &ResolveError{Path: abs, Reason: "override path is not a regular file"}
	}
	return abs, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ResolveError carries the platform or path needed to diagnose a failed lookup.
type ResolveError struct {
	Platform string
	Arch     string
	Package  string
	Path     string
	Reason   string
	Hint     string
	Err      error
}

func (e *ResolveError) Error() string {
	msg := e.Reason
	if e.Platform != "" {
		msg += fmt.Sprintf(" for %s/%s", e.Platform, e.Arch)
	}
	if e.Package != "" {
		msg += fmt.Sprintf(" (expected package %s)", e.Package)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(": %s", e.Path)
	}
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolveError) Unwrap() error { return e.Err }
