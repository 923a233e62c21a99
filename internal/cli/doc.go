// Package cli provides the building blocks of the botfleet command line.
//
// # Components
//
// Printer renders lifecycle results in one of the output formats:
//   - table: kubectl-style plain columns, easy to grep and cut
//   - wide: the same table with image, owner and workflow columns
//   - json and yaml: the raw API objects for scripting
//
// Detailed status is shown as a rounded go-pretty box followed by a pod table.
//
// CommandFlags and NewClient turn the persistent flags (server, tenant, admin
// token, output) into an API client. Flag defaults are read from BOTFLEET_*
// environment variables.
//
// UpdateWithProgress drives an update end to end: it reports the local
// validation and upload stages, sends the change and then polls the detailed
// status until the bot reaches a terminal stage, showing a spinner while it
// waits.
//
// Errors returned by the server are rendered with DescribeError, which adds a
// hint for the common kinds. Transport failures are classified by
// ClassifyConnectionError.
package cli
