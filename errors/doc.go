// Package errors provides the structured error type shared by httpsmgr.
//
// Transport and protocol failures never surface as Go errors from the
// transaction manager; they are recorded as a transaction outcome. AppError
// carries the code, the outcome status it maps to, and whether the failure
// is a programming error (CONTRACT_VIOLATION) the embedding application
// should treat as unrecoverable.
package errors
