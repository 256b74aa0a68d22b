// Package archive streams zip archives of directories to HTTP clients.
//
// A transfer moves through four collaborators:
//
//   - Locator resolves an identifier to a directory under the archive root.
//   - Compressor starts a Stream producing the zip bytes for that directory,
//     either by running an external command (ExecCompressor) or in process
//     (NativeCompressor).
//   - Session owns the HTTP response: headers, chunk writes and the final
//     graceful or forced close.
//   - Supervisor drives the read/write loop for one request and guarantees
//     that the Stream is terminated and reaped once and the Session is
//     closed once, whatever ends the transfer.
//
// Chunks flow from a producer goroutine to the handler goroutine through a
// bounded queue, so a slow client stalls the compressor instead of
// buffering the archive in memory.
package archive
