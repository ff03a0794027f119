// Package stream extracts datastream records from a feed document while it is
// still arriving.
//
// The parser reads one byte at a time from a ByteSource, so a stalled
// connection is detected per byte rather than per document. All scratch
// storage is allocated when the Parser is built and reused by every Parse
// call. Strings longer than their buffer are truncated, but the remainder is
// still consumed so the parser stays aligned with the stream.
//
// Only the shapes produced by the feed API are understood: a single record
// object at the root, or records inside an array named "datastreams". The
// input is not validated beyond what is needed to find those records.
package stream
