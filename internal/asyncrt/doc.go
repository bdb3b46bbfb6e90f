// Package asyncrt provides the single-threaded event loop that sessions,
// editors and language server clients share. Language server readers run on
// their own goroutines and Post every response back to the loop, so code
// running on the loop needs no locks.
package asyncrt
