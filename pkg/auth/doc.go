// Package auth implements the access-control core of pforte: the
// credential store, the authentication gate, and the identity accessor
// used by the authorization engine.
//
// Credentials live in a plain text file, one `name salt hash [locked]`
// record per line, loaded once at process start. The store also tracks
// shadow records for usernames it has never seen, so that a guess
// against a nonexistent account walks exactly the same attempt-counting
// and lockout state machine as a wrong password for a real one. That
// keeps the two cases indistinguishable from outside and defeats
// username enumeration. The combined real-plus-shadow population is
// capped; past the cap, unknown-name logins fail as internal errors.
//
// Lockout is one-way: after the attempt threshold is crossed the record
// stays locked until an operator edits the credential file and restarts
// the process. Nothing in here unlocks or resets counters at runtime.
package auth
