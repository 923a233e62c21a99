// Package client is the HTTP client of the botfleet lifecycle API.
//
// Client implements api.BotManagerHandler, so code written against the
// in-process lifecycle manager works unchanged against a remote server. The
// tenant argument of each call selects the route:
//
//	tenant != ""          /api/v1/bots    with X-Tenant-ID
//	tenant == "", admin   /admin/v1/bots  with X-Admin-Token
//
// Failed calls return a *StatusError, which carries the structured error
// body of the server and keeps its kind, so api.KindOf works on the client
// side too.
//
// Example:
//
//	c := client.New(client.Config{BaseURL: "http://localhost:8080"})
//	bots, err := c.List(ctx, "alice")
package client
