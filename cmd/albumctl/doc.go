// Command albumctl runs album maintenance against the server's database
// and cache without going through HTTP.
//
// Usage:
//
//	albumctl scan [-r] [--update=false] PATH...
//	albumctl tree [-k KEYWORD] [--parent PATH]
//	albumctl cleanup [--max-bytes N]
//	albumctl refresh
//
// It reads the same APP_* environment and .env file as the server. Output
// is a table on a terminal and JSON otherwise; --json forces JSON. Scans
// always honor -r, whatever the allowRecursive setting says.
//
// Exit codes are 0 on success, 1 on failure and 2 on a usage error.
package main
