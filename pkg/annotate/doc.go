// Package annotate implements the record lifecycle behind an image
// upload/annotation gallery: an ingress coordinator that stores uploaded
// images and creates a pending record, two independent workers (captioning
// and thumbnailing) that each own one field-group of that record, and a
// read-side status projection for client polling.
//
// The two workers are triggered at-least-once per stored object and may run
// concurrently. Correctness relies on disjoint field-group ownership, not on
// locking: the annotation worker only ever writes annotation columns and the
// thumbnail worker only ever writes thumbnail columns, so redelivered or
// racing invocations cannot lose each other's updates.
package annotate
