// Package recording implements the on-disk capture format: a magic header
// followed by a gzip stream of self-delimited records. Each record is a kind
// byte, a big-endian uint32 body length, and a JSON body. The writer flushes
// after every record, so a killed process loses at most the final partial
// record and the reader can always recover everything before it.
package recording

// Ext is the recording file extension and doubles as the type marker the
// loader checks before opening.
const Ext = ".cuerec"

// Magic sits uncompressed ahead of the gzip stream.
const Magic = "CUEREC1\n"

// Record kinds. Metadata is always record 0.
const (
	recMetadata byte = 0x01
	recPacket   byte = 0x02
)

// maxRecordLen bounds a single record body. A full universe payload encodes
// to well under 4KiB of JSON; anything larger means a broken length prefix.
const maxRecordLen = 64 * 1024
