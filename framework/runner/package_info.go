// Package runner contains a test runner framework that is similar to Go's testing package,
// but is run as regular Go application code rather than Go tests. It is what the maqs command
// uses to run its smoke suites, and it adds per-scope hooks, captured debug output, and
// console/JUnit result reporting.
package runner
