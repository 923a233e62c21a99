// Package server exposes the bot lifecycle over HTTP.
//
// Two route groups share one set of handlers:
//
//	/api/v1/bots     tenant routes, scoped by the X-Tenant-ID header
//	/admin/v1/bots   administrative routes, guarded by X-Admin-Token
//
// The admin group is only registered when an admin token is configured. A
// missing or wrong token is answered with 401 before any handler runs.
// Every failure is answered with an api.ErrorResponse whose kind decides the
// HTTP status code:
//
//	validation  400
//	ownership   403
//	not_found   404
//	conflict    409
//	upstream    502
//	internal    500
//
// Request counts and latencies are exported on /metrics from a registry owned
// by the server, so several servers in one process (tests) do not collide.
package server
