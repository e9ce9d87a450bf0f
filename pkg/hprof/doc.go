// Package hprof is a zero-copy streaming parser for the JVM hprof binary
// heap-profile format.
//
// Every parsed value is a view over a caller-owned byte slice (a file read
// into memory, a memory-mapped region, or any other []byte): records, sub-records, field
// descriptors, and array elements never copy their payload. The package is
// organized bottom-up, mirroring the format's own layering:
//
//   - idsize.go    - Id, IdSize and Serial
//   - cursor.go    - the byte cursor and its big-endian primitive decoders
//   - iterator.go  - the generic "parse N items from a cursor" adapter
//   - header.go    - the hprof file header
//   - record.go    - top-level record framing and the record tag set
//   - utf8.go      - Utf8 and LoadClass record bodies
//   - subrecord.go - heap-dump sub-record discrimination and GC-root variants
//   - class.go     - Class sub-record, field descriptors, field values
//   - instance.go  - Instance sub-record
//   - array.go     - ObjectArray and PrimitiveArray sub-records
//   - classview.go - denormalized class view and descriptor-chain expansion
//   - fingerprint.go - HprofFingerprint
//
// A typical consumer first does a sequential pass to build the Utf8,
// LoadClass, and class-view maps (see ClassTableBuilder), then makes a second
// pass - sequential or parallel, at the caller's discretion - over the same
// byte slice to process instances, object arrays, and GC roots.
package hprof
