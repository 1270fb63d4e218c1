package execshell

import "os/exec"

// ToolLocator reports whether an executable is installed.
type ToolLocator interface {
	LookPath(name CommandName) (string, error)
}

// PathToolLocator resolves executables from PATH.
type PathToolLocator struct{}

// NewPathToolLocator constructs a PATH-backed locator.
func NewPathToolLocator() PathToolLocator {
	return PathToolLocator{}
}

// LookPath returns the absolute path of the executable or an error when it is missing.
func (PathToolLocator) LookPath(name CommandName) (string, error) {
	return exec.LookPath(string(name))
}

// ToolAvailable reports whether the locator can find the executable.
func ToolAvailable(locator ToolLocator, name CommandName) bool {
	if locator == nil {
		return false
	}
	_, lookupError := locator.LookPath(name)
	return lookupError == nil
}
