package songs

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// EncodeRoll packs a piano roll into a compact binary
// form: little-endian frame and cell counts followed by
// one bit per cell, deflate compressed.
//
// Every frame must have the same number of cells. Cells
// are binarized at 0.5, so encoding a roll of
// probabilities stores the thresholded roll.
func EncodeRoll(roll [][]float64) ([]byte, error) {
	width := 0
	if len(roll) > 0 {
		width = len(roll[0])
	}
	for i, frame := range roll {
		if len(frame) != width {
			return nil, fmt.Errorf("encode roll: frame %d has %d cells, expected %d",
				i, len(frame), width)
		}
	}

	packed := make([]byte, (len(roll)*width+7)/8)
	idx := 0
	for _, frame := range roll {
		for _, cell := range frame {
			if cell > 0.5 {
				packed[idx>>3] |= 1 << uint(idx&7)
			}
			idx++
		}
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(len(roll)))
	binary.Write(&out, binary.LittleEndian, uint32(width))
	w, err := flate.NewWriter(&out, flate.DefaultCompression)

	// Only throws an error if the level is invalid.
	if err != nil {
		panic(err)
	}

	w.Write(packed)
	w.Close()
	return out.Bytes(), nil
}

// DecodeRoll reverses EncodeRoll.
func DecodeRoll(data []byte) ([][]float64, error) {
	if len(data) < 8 {
		return nil, errors.New("decode roll: truncated header")
	}
	frames := int(binary.LittleEndian.Uint32(data))
	width := int(binary.LittleEndian.Uint32(data[4:]))

	var packed bytes.Buffer
	reader := flate.NewReader(bytes.NewReader(data[8:]))
	if _, err := io.Copy(&packed, reader); err != nil {
		return nil, fmt.Errorf("decode roll: %s", err)
	}
	bits := packed.Bytes()

	// The counts come from the wire, so the product is
	// checked in uint64 where it cannot wrap.
	if uint64(len(bits))*8 < uint64(frames)*uint64(width) {
		return nil, errors.New("decode roll: not enough cell data")
	}

	roll := make([][]float64, frames)
	idx := 0
	for i := range roll {
		frame := make([]float64, width)
		for j := range frame {
			if bits[idx>>3]&(1<<uint(idx&7)) != 0 {
				frame[j] = 1
			}
			idx++
		}
		roll[i] = frame
	}
	return roll, nil
}
