// Package protocol owns the schema-driven wire contract.
//
// Ownership boundary:
// - types: primitive catalog and little-endian primitives
// - schema: type grammar and compiled layouts
// - codec: value trees, sizing, writer and reader
// - registry: message-type id to compiled schema
// - frame: header + payload stream decoding
//
// All layouts are tightly packed and little-endian.
package protocol
