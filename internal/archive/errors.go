package archive

import "errors"

// Sentinel errors returned by Source implementations and the Store.
var (
	// ErrStudyNotFound indicates the requested study UID is not in the index.
	ErrStudyNotFound = errors.New("study not found")
	// ErrSeriesNotFound indicates the requested series UID is not in the index.
	ErrSeriesNotFound = errors.New("series not found")
	// ErrInstanceNotFound indicates the requested SOP instance UID is not in
	// the index or its pixel data is missing from the blob store.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrDuplicateInstance indicates the SOP instance UID is already archived.
	// Importers treat this as a skip, not a failure.
	ErrDuplicateInstance = errors.New("instance already archived")
)
