package pipeline

// CompileOutcome is the explicit result type for the external compiler
// invocation. Diagnostics from the compiler are non-fatal as long as usable
// output was emitted; only total absence of output is fatal.
type CompileOutcome string

const (
	CompileSuccess      CompileOutcome = "success"
	CompileSoftSuccess  CompileOutcome = "success_with_warnings"
	CompileFatal        CompileOutcome = "fatal"
	CompileNotAttempted CompileOutcome = ""
)

// RunState is the shared mutable handle passed through every stage. Roots are
// absolute paths resolved once up front; stages never consult the process
// working directory.
type RunState struct {
	Source  string // project root (read-only input tree)
	Staging string // staging output root, rebuilt from scratch each run

	Compile CompileOutcome

	Report *RunReport
}
