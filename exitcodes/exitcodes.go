// Package exitcodes defines the process exit codes of op-testreport.
package exitcodes

// The exit code reflects the reported run, not whether artifacts could be
// written:
//
// * Success (0): the run had no failures
// * TestFailure (1): at least one test or hook failed
// * RuntimeErr (2): the report could not be produced, e.g. unreadable input
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)

// ForFailures returns the exit code of a run with the given failure count
func ForFailures(failures int) int {
	if failures > 0 {
		return TestFailure
	}
	return Success
}
