// Package lifecycle implements the bot operations on top of the control plane.
//
// A Manager turns lifecycle intents into calls on a kube.Client: Deploy builds
// the objects with the manifest builder and creates them in order, Delete
// removes the deployment and then cleans up on a best-effort basis, and
// Scale, Update and Restart read the deployment, modify it and write it back.
// Reads go through the status package, so every view is derived from the
// objects as they are now.
//
// Failures are returned as errors from the api package. Nothing is rolled back
// when a multi-object operation fails halfway; callers retry or delete.
package lifecycle
