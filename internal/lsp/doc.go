// Package lsp is a language server client over stdio JSON-RPC. A Client
// talks to one server and is a codelens.Backend; a Pool starts servers,
// tracks which documents each one has open and is a codelens.Transport.
//
// Responses are read on a goroutine per server and handed to the session's
// event loop through ClientOptions.Post.
package lsp
