package persist

import "fmt"

// StorageError is a local cache failure. Callers log it and carry on as if
// the cache were empty.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// SyncError is a remote subscription or push failure.
type SyncError struct {
	Op  string
	Key Key
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
