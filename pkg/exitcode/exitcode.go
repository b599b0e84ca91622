// Package exitcode provides the process exit codes for aerorepo.
//
// Every command reports success or failure only through these codes: a
// manifest was written, or every checked URL/file passed, or not.
package exitcode

const (
	Success = 0
	Failure = 1
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	default:
		return "Unknown exit code"
	}
}

// FromBool maps a pass/fail outcome to an exit code.
func FromBool(ok bool) int {
	if ok {
		return Success
	}
	return Failure
}
