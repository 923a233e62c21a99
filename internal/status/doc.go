// Package status turns orchestration objects into the bot view.
//
// Everything here is a pure function of a deployment, the pods that carry its
// app label and, for uptime, the current time. Nothing is stored between calls;
// the status and the update stage are recomputed from cluster state on every
// read, which is what makes polling clients work without server-side state.
package status
