// Package vs benchmarks lightjit against other WebAssembly runtimes.
package vs
