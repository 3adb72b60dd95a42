// This package contains the main [Codec] interface and several implementations inside subpackages.
package codec

// Codec encodes and decodes items for storage.
//
// Implementations are safe for concurrent use.
type Codec[Item any] interface {
	// Encode serializes an item into a byte slice.
	Encode(item Item) ([]byte, error)
	// Decode deserializes an item from a byte slice.
	Decode(data []byte) (Item, error)
}
