package msgpack

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/teenjuna/handoff/codec"
)

type Codec[Item any] struct{}

var _ codec.Codec[any] = (*Codec[any])(nil)

func New[Item any]() *Codec[Item] {
	return &Codec[Item]{}
}

func (c *Codec[Item]) Encode(item Item) ([]byte, error) {
	return msgpack.Marshal(&item)
}

func (c *Codec[Item]) Decode(data []byte) (Item, error) {
	var item Item
	if err := msgpack.Unmarshal(data, &item); err != nil {
		return item, err
	}
	return item, nil
}
