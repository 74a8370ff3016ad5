package block

import (
	"bufio"
	"io"

	"github.com/iamNilotpal/lattice/internal/codec"
	"github.com/iamNilotpal/lattice/pkg/schema"
)

// Encode writes the block to w as one compressed frame: dimension count,
// then each axis as a length-prefixed run of datums, then one presence byte
// per slot (1 = absent, 0 = present), then the present values in slot order.
func (b *Block) Encode(w io.Writer, level int) error {
	fw, err := codec.NewFrameWriter(w, level)
	if err != nil {
		return err
	}

	if err := fw.WriteUint16(uint16(len(b.dims))); err != nil {
		return err
	}
	for _, dimVals := range b.dims {
		if err := fw.WriteUint32(uint32(len(dimVals))); err != nil {
			return err
		}
		for _, dimVal := range dimVals {
			if err := fw.WriteUint64(dimVal); err != nil {
				return err
			}
		}
	}

	// Presence bytes first, then the packed values, so a reader knows how
	// many value datums follow before it reads any of them.
	presence := make([]byte, len(b.present))
	for i, present := range b.present {
		if !present {
			presence[i] = 1
		}
	}
	if err := fw.WriteBytes(presence); err != nil {
		return err
	}

	for i, present := range b.present {
		if !present {
			continue
		}
		if err := fw.WriteUint64(b.values[i]); err != nil {
			return err
		}
	}

	return fw.Close()
}

// Decode replaces the block's contents with a frame read from src. The
// reader is left positioned just after the frame, up to the one byte of
// decompressor slack resolved by codec.SkipToNextTag.
func (b *Block) Decode(src *bufio.Reader) error {
	fr, err := codec.OpenFrame(src)
	if err != nil {
		return err
	}

	numDimensions, err := fr.ReadUint16()
	if err != nil {
		return err
	}

	numValues := 1
	b.dims = make([][]schema.Datum, 0, numDimensions)
	for i := 0; i < int(numDimensions); i++ {
		dimSize, err := fr.ReadUint32()
		if err != nil {
			return err
		}
		dimVals := make([]schema.Datum, 0, dimSize)
		for j := 0; j < int(dimSize); j++ {
			dimVal, err := fr.ReadUint64()
			if err != nil {
				return err
			}
			dimVals = append(dimVals, dimVal)
		}
		b.dims = append(b.dims, dimVals)
		numValues *= int(dimSize)
	}

	presence := make([]byte, numValues)
	if err := fr.ReadFull(presence); err != nil {
		return err
	}

	b.present = make([]bool, numValues)
	b.values = make([]schema.Datum, numValues)
	for i, missing := range presence {
		if missing == 1 {
			continue
		}
		val, err := fr.ReadUint64()
		if err != nil {
			return err
		}
		b.present[i] = true
		b.values[i] = val
	}

	return fr.Close()
}
