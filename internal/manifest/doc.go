// Package manifest turns a bot configuration into the Kubernetes objects that
// run it: one Deployment, a Service when a port is declared, and a ConfigMap
// holding the code bundle when one is supplied.
//
// Building is pure. Identical configurations produce identical objects, which
// is what allows Render to serve as a dry run and Update to diff against a
// freshly built container spec.
//
// Bots are matched to their pods by the app=<id> label, where the id is
// Slugify(name). Every label is set on both the Deployment and its pod
// template.
package manifest
