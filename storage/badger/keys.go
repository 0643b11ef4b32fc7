package badger

import (
	"encoding/binary"

	"github.com/poiesic/semsearch/core"
)

// Key prefixes for different data types
const (
	itemPrefix     = "item:"
	itemCodePrefix = "itemcode:"
	itemIDSeq      = "itemseq"
	stampKey       = "corpus:stamp"
)

// makeItemKey generates a key for an item by ID.
// Format: prefix + big-endian ID, so prefix scans return items in insertion order.
func makeItemKey(id core.ID) []byte {
	buf := make([]byte, len(itemPrefix)+8)
	offset := copy(buf, itemPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeItemCodeKey generates a key for the code index.
// Format: prefix + code
func makeItemCodeKey(code string) []byte {
	buf := make([]byte, len(itemCodePrefix)+len(code))
	offset := copy(buf, itemCodePrefix)
	copy(buf[offset:], code)
	return buf
}
