// Package codelens caches, resolves, renders and executes code lenses
// reported by language servers for documents open in an editor.
//
// A Session ties the pieces together:
//
//   - Store keeps document → backend → lenses and invalidates rendered
//     lines when the document changes.
//   - Renderer draws one backend's lenses as line annotations in that
//     backend's namespace.
//   - Resolver asks backends for the commands of unresolved lenses and
//     overlays each result as it lands.
//   - Coordinator runs at most one refresh cycle per document.
//   - Executor runs the command of the lens under the cursor.
//
// The package is single-threaded: the editor and transport must deliver
// every callback on the same goroutine (see internal/asyncrt).
package codelens
