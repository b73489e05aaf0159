// Package bootstrap verifies the monitored application's toolchain before
// any supervision action: a python interpreter must be on PATH, and the web
// dashboard additionally needs its python packages, installed once via pip
// when missing.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// ErrToolchainMissing is the fatal precondition: no python interpreter on
// PATH. Nothing can be started without it.
var ErrToolchainMissing = errors.New("python interpreter not found on PATH")

// webPackages is the fixed dependency set of the monitored application.
var webPackages = []string{"requests", "pandas", "streamlit", "plotly"}

// EnsurePython returns the resolved python interpreter path, preferring
// python3.
func EnsurePython() (string, error) {
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrToolchainMissing
}

// ResolvePython returns the interpreter to use. An explicitly configured
// interpreter is verified but never replaced by the PATH search; only an
// empty value falls back to EnsurePython.
func ResolvePython(configured string) (string, error) {
	if configured == "" {
		return EnsurePython()
	}
	path, err := exec.LookPath(configured)
	if err != nil {
		return "", fmt.Errorf("configured python %q: %w", configured, err)
	}
	return path, nil
}

// EnsureWebDeps checks that streamlit is importable and auto-installs the
// monitored application's packages once when it is not. Installer output
// streams to the console so the operator sees pip progress.
func EnsureWebDeps(python string, log *slog.Logger) error {
	check := exec.Command(python, "-c", "import streamlit")
	check.Stdout = nil
	check.Stderr = nil
	if err := check.Run(); err == nil {
		return nil
	}

	log.Warn("streamlit not importable, installing dependencies", "packages", webPackages)
	args := append([]string{"-m", "pip", "install"}, webPackages...)
	install := exec.Command(python, args...)
	install.Stdout = os.Stdout
	install.Stderr = os.Stderr
	if err := install.Run(); err != nil {
		return fmt.Errorf("pip install failed: %w", err)
	}

	recheck := exec.Command(python, "-c", "import streamlit")
	if err := recheck.Run(); err != nil {
		return fmt.Errorf("streamlit still not importable after install: %w", err)
	}
	return nil
}
