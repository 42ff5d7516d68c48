// Package logging provides a simple leveled logging interface for the
// album viewer.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions, including best-effort failures that were swallowed
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The initial level comes from the DEBUG or LOG_LEVEL environment variables
// and may be replaced later with SetLevel once configuration is loaded.
package logging
