// Package preflight provides readiness checks for the directories picture
// reads and writes.
//
// `picture config validate` runs RunAll and prints each result so a broken
// site layout is reported before the first render fails halfway through a
// page. Sources must be readable; the generated, state, and log directories
// must be writable, or creatable when they do not exist yet.
package preflight
