// Package pipecmd describes and executes shell-style command pipelines
// against the host OS: a single command, a chain of commands connected by
// pipes, with stdin/stdout/stderr redirected to files, in-memory buffers, or
// caller-supplied descriptors. It is a typed, composable replacement for
// shelling out with `sh -c "a | b > file"`.
//
//	var out string
//	err := pipecmd.New("echo hello").
//		Pipe("tr a-z A-Z").
//		StdoutTo(&out).
//		Run()
//
// Pipelines follow classic shell semantics: every stage is spawned before
// any stage is waited on, parent-side pipe ends are closed as soon as the
// stage using them is running, and the pipeline's exit code is the last
// stage's. Command lines are expanded with POSIX shell word rules (quoting,
// $VAR, globs) before spawning; see the expander package.
//
// The library is synchronous and spawns no threads of its own beyond a
// helper that feeds input buffers; all parallelism is the OS running the
// stages concurrently. Distinct pipelines are safe to run from distinct
// goroutines.
package pipecmd
