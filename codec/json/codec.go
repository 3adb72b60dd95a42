package json

import (
	"github.com/bytedance/sonic"

	"github.com/teenjuna/handoff/codec"
)

type Codec[Item any] struct {
	api sonic.API
}

var _ codec.Codec[any] = (*Codec[any])(nil)

// New returns a JSON codec compatible with encoding/json.
func New[Item any]() *Codec[Item] {
	return &Codec[Item]{
		api: sonic.ConfigStd,
	}
}

func (c *Codec[Item]) Encode(item Item) ([]byte, error) {
	return c.api.Marshal(item)
}

func (c *Codec[Item]) Decode(data []byte) (Item, error) {
	var item Item
	if err := c.api.Unmarshal(data, &item); err != nil {
		return item, err
	}
	return item, nil
}
