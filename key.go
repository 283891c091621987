package walletd

import (
	"github.com/pandodao/mtg/mtgpack"
)

// buildIndexKey composes a store key from a fixed prefix plus typed parts
// (wallet address, service name, preference name). Parts are length-framed,
// so "b:"+addr can never collide with another addr's key.
func buildIndexKey(prefix []byte, values ...any) []byte {
	enc := mtgpack.NewEncoder()
	if err := enc.EncodeValues(values...); err != nil {
		panic(err)
	}

	return append(prefix, enc.Bytes()...)
}
