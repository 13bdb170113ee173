// Package domain holds the model types and the port interfaces shared by the
// presentation state machine and the session registry. It has no behavior of
// its own beyond trivial accessors.
package domain
