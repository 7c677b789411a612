// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	headerFrame = "OSMHeader"
	dataFrame   = "OSMData"

	maxFrameHeaderSize = 64 * 1024
	maxBlobSize        = 32 * 1024 * 1024
)

// Frame header fields.
const (
	frameType     protowire.Number = 1
	frameDatasize protowire.Number = 3
)

var ErrMalformed = errors.New("malformed snapshot")

type frame struct {
	typ  string
	blob []byte
}

// writeFrame writes the size of the frame header, the frame header and the
// blob to wrtr.
func writeFrame(wrtr io.Writer, typ string, blob []byte) error {
	var hb []byte
	hb = protowire.AppendTag(hb, frameType, protowire.BytesType)
	hb = protowire.AppendString(hb, typ)
	hb = protowire.AppendTag(hb, frameDatasize, protowire.VarintType)
	hb = protowire.AppendVarint(hb, uint64(len(blob)))

	if err := binary.Write(wrtr, binary.BigEndian, uint32(len(hb))); err != nil {
		return fmt.Errorf("could not write header size: %w", err)
	}

	if _, err := wrtr.Write(hb); err != nil {
		return fmt.Errorf("could not write frame header: %w", err)
	}

	if _, err := wrtr.Write(blob); err != nil {
		return fmt.Errorf("could not write blob data: %w", err)
	}

	return nil
}

// readFrame reads the next frame off rdr. It returns io.EOF, unwrapped,
// when rdr ends cleanly between two frames.
func readFrame(rdr io.Reader) (frame, error) {
	var size uint32

	if err := binary.Read(rdr, binary.BigEndian, &size); err != nil {
		if errors.Is(err, io.EOF) {
			return frame{}, io.EOF
		}

		return frame{}, fmt.Errorf("error reading frame header size: %w", err)
	}

	if size > maxFrameHeaderSize {
		return frame{}, fmt.Errorf("%w: frame header of %d bytes", ErrMalformed, size)
	}

	hb := make([]byte, size)
	if _, err := io.ReadFull(rdr, hb); err != nil {
		return frame{}, fmt.Errorf("error reading frame header: %w", noEOF(err))
	}

	var (
		f        frame
		datasize uint64
	)

	err := walk(hb, func(num protowire.Number, v uint64, data []byte) error {
		switch num {
		case frameType:
			f.typ = string(data)
		case frameDatasize:
			datasize = v
		}

		return nil
	})
	if err != nil {
		return frame{}, err
	}

	if datasize > maxBlobSize {
		return frame{}, fmt.Errorf("%w: blob of %d bytes", ErrMalformed, datasize)
	}

	f.blob = make([]byte, datasize)
	if _, err := io.ReadFull(rdr, f.blob); err != nil {
		return frame{}, fmt.Errorf("error reading blob: %w", noEOF(err))
	}

	return f, nil
}

// noEOF turns io.EOF into io.ErrUnexpectedEOF, as only the end of a whole
// frame is a clean end of input.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}
