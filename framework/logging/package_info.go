// Package logging contains the leveled loggers used during a test: console, plain-text file,
// JSON file, composite fan-out, and an in-memory capturing logger used by the test runner.
package logging
