// Package archive indexes DICOM studies and serves instance pixel data.
//
// The Store keeps study, series, and instance metadata in a SQL index
// (SQLite by default, Postgres optionally) while raw instance files live in
// a blob store. The Importer walks directory trees, extracts metadata from
// each file, and registers it in both places. Store satisfies the Source
// interface that viewer sessions load instances through, so local archives
// and remote DICOMweb origins are interchangeable at the call site.
//
// Instance listings are ordered by instance number with the SOP instance UID
// as a tie breaker, so repeated listings of the same series always return
// the same order.
package archive
