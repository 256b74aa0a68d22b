package archive

// ArchiveRequest is a resolved request for one archive. It is created by
// Locator.Resolve and owned by the goroutine serving the request.
type ArchiveRequest struct {
	// ID is the identifier as supplied by the client.
	ID string

	// Path is the absolute, symlink-free directory to compress.
	Path string

	// Filename is announced in Content-Disposition. Empty means the
	// supervisor's configured filename.
	Filename string
}
