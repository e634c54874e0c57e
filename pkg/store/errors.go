package store

import "errors"

// Errors for file store operations in file.go.
var (
	// errCreateDataDirFailed indicates the data directory could not be created.
	errCreateDataDirFailed = errors.New("failed to create data directory")
	// errEncodeRecordFailed indicates a record could not be encoded to JSON.
	errEncodeRecordFailed = errors.New("failed to encode record")
	// errDecodeRecordFailed indicates a stored document could not be decoded.
	errDecodeRecordFailed = errors.New("failed to decode record")
	// errWriteRecordFailed indicates a record could not be written durably.
	errWriteRecordFailed = errors.New("failed to write record")
	// errReadRecordFailed indicates a stored document could not be read.
	errReadRecordFailed = errors.New("failed to read record")
	// errListRecordsFailed indicates the data directory could not be scanned.
	errListRecordsFailed = errors.New("failed to list records")
)
