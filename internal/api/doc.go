// Package api defines the types shared by every layer of botfleet: the bot
// model, the BotManagerHandler interface and the typed errors.
//
// # Handler Interface
//
// BotManagerHandler is the lifecycle contract. The lifecycle manager
// implements it against the cluster, the HTTP client implements it against
// a remote server, and the HTTP server and CLI only ever talk to the
// interface:
//
//	var bots api.BotManagerHandler = lifecycle.NewManager(kube, builder)
//	bot, err := bots.Deploy(ctx, api.BotConfig{Name: "Echo", Language: "python", UserID: "alice"})
//
// # Tenancy
//
// Every call except Deploy takes a tenant. A non-empty tenant must match the
// user-id label of the bot, otherwise the call fails with an OwnershipError.
// An empty tenant is reserved for administrative callers and skips the check.
//
// # Errors
//
// Every error returned by a lifecycle operation carries one ErrorKind:
//
//	validation  the request was rejected before touching the cluster
//	ownership   the bot belongs to another tenant
//	not_found   the bot or one of its objects does not exist
//	conflict    the request clashes with the cluster state
//	upstream    the control plane failed; status and message are kept
//	internal    anything else
//
// KindOf resolves the kind through wrapped errors. NewErrorResponse turns an
// error into the (kind, message) body the HTTP layer returns:
//
//	if api.IsNotFound(err) {
//	    // the bot is gone
//	}
//	resp := api.NewErrorResponse(err) // {"kind":"not_found","message":"bot bot-x not found"}
package api
