// Package storage provides small file-backed key/value areas. Quest keeps two:
// a synced area for the settings record and a local-only area for credentials.
package storage

// Provider is the interface for area operations. Keys are file names
// relative to the area root.
type Provider interface {
	// Read returns the stored bytes. A missing key yields an error wrapping os.ErrNotExist.
	Read(key string) ([]byte, error)
	// Write atomically replaces the value stored under key.
	Write(key string, content []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Root returns the absolute directory backing the area.
	Root() string
}
