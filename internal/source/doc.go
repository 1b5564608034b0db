// Package source provides scanner.InputStream implementations: image files
// and PDF documents on disk, fixed in-memory frame lists, and push-driven
// channels for live clients.
package source
