/*
Package document orchestrates concurrent access to persisted configuration trees.

Mutations of one document are serialized by a per-document lock (and, across
replicas, by an optional distributed lock). Resolutions that may suspend are
run outside the lock under a Ticket: each ticket is stamped with a
monotonically increasing number per node path, and committing a ticket that
was superseded by a newer one for the same path fails with
domain.ErrStaleResult instead of overwriting the newer result.
*/
package document
