package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"reactorcore/pkg/geom"
)

const (
	MagicNumber = 0x52

	OpStep  = 0x01 // Value: instruction line
	OpCount = 0x02 // Value: region box, empty for the init region
	OpProbe = 0x03 // Key: point
	OpReset = 0x04
	OpStats = 0x05

	RespOK  = 0x00
	RespErr = 0xFF
	RespVal = 0x01
)

// MaxValueSize caps the value length accepted by Decode. The largest request
// is one instruction line.
const MaxValueSize = 64 << 10

const (
	PointSize = 3 * 8
	BoxSize   = 2 * PointSize
	CountSize = 2 * 8
)

var (
	ErrShortPayload    = errors.New("short payload")
	ErrPayloadTooLarge = errors.New("payload too large")
)

type Packet struct {
	Op    byte
	Key   []byte
	Value []byte
}

func Encode(w io.Writer, op byte, key []byte, value []byte) error {
	header := make([]byte, 8)
	header[0] = MagicNumber
	header[1] = op
	binary.BigEndian.PutUint16(header[2:4], uint16(len(key)))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(value)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(key) > 0 {
		if _, err := w.Write(key); err != nil {
			return err
		}
	}
	if len(value) > 0 {
		if _, err := w.Write(value); err != nil {
			return err
		}
	}
	return nil
}

func Decode(r io.Reader) (*Packet, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	if header[0] != MagicNumber {
		return nil, errors.New("invalid magic number")
	}

	op := header[1]
	kLen := binary.BigEndian.Uint16(header[2:4])
	vLen := binary.BigEndian.Uint32(header[4:8])
	if vLen > MaxValueSize {
		return nil, ErrPayloadTooLarge
	}

	key := make([]byte, kLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	val := make([]byte, vLen)
	if _, err := io.ReadFull(r, val); err != nil {
		return nil, err
	}

	return &Packet{Op: op, Key: key, Value: val}, nil
}

func EncodePoint(p geom.Point) []byte {
	buf := make([]byte, PointSize)
	binary.BigEndian.PutUint64(buf[0:8], uint64(p.X))
	binary.BigEndian.PutUint64(buf[8:16], uint64(p.Y))
	binary.BigEndian.PutUint64(buf[16:24], uint64(p.Z))
	return buf
}

func DecodePoint(b []byte) (geom.Point, error) {
	if len(b) < PointSize {
		return geom.Point{}, ErrShortPayload
	}
	return geom.Point{
		X: int64(binary.BigEndian.Uint64(b[0:8])),
		Y: int64(binary.BigEndian.Uint64(b[8:16])),
		Z: int64(binary.BigEndian.Uint64(b[16:24])),
	}, nil
}

// [Min 24B] [Max 24B]
func EncodeBox(b geom.Box) []byte {
	return append(EncodePoint(b.Min), EncodePoint(b.Max)...)
}

func DecodeBox(b []byte) (geom.Box, error) {
	if len(b) < BoxSize {
		return geom.Box{}, ErrShortPayload
	}
	lo, _ := DecodePoint(b[:PointSize])
	hi, _ := DecodePoint(b[PointSize:BoxSize])
	return geom.NewBox(lo, hi)
}

// [InRegion 8B] [Total 8B]
func EncodeCount(inRegion, total int64) []byte {
	buf := make([]byte, CountSize)
	binary.BigEndian.PutUint64(buf[0:8], uint64(inRegion))
	binary.BigEndian.PutUint64(buf[8:16], uint64(total))
	return buf
}

func DecodeCount(b []byte) (inRegion, total int64, err error) {
	if len(b) < CountSize {
		return 0, 0, ErrShortPayload
	}
	return int64(binary.BigEndian.Uint64(b[0:8])), int64(binary.BigEndian.Uint64(b[8:16])), nil
}
