// Package journal keeps a SQLite history of pipeline runs and the outcome of
// every stage for every sample.
//
// The journal is an audit trail; it never decides whether a stage runs. That
// decision belongs to the on-disk idempotency check so a deleted output is
// always rebuilt regardless of what the journal remembers. Schema changes are
// shipped as numbered files under migrations/ and applied in order on Open.
package journal
