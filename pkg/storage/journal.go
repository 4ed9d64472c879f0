package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"reactorcore/pkg/geom"
	"reactorcore/pkg/instr"
	"sync"
	"time"
)

// [CRC32 4B] [Timestamp 8B] [State 1B] [MinX MaxX MinY MaxY MinZ MaxZ 6x8B]

const (
	HeaderSize = 4 + 8
	RecordSize = HeaderSize + 1 + 6*8 // 61 Bytes
)

var ErrCorrupt = errors.New("journal: crc mismatch")

// Journal is an append-only log of applied steps used to rebuild the
// partition after a restart.
type Journal struct {
	file *os.File
	mu   sync.Mutex
	buf  *bufio.Writer
}

func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &Journal{
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

func encodeStep(rec []byte, step instr.Step) {
	ts := uint64(time.Now().UnixNano())
	binary.LittleEndian.PutUint64(rec[4:12], ts)
	if step.On {
		rec[12] = 1
	} else {
		rec[12] = 0
	}
	b := step.Box
	for i, v := range [6]int64{b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z} {
		binary.LittleEndian.PutUint64(rec[13+i*8:21+i*8], uint64(v))
	}
	binary.LittleEndian.PutUint32(rec[0:4], crc32.ChecksumIEEE(rec[12:]))
}

func decodeStep(rec []byte) (instr.Step, error) {
	if crc32.ChecksumIEEE(rec[12:]) != binary.LittleEndian.Uint32(rec[0:4]) {
		return instr.Step{}, ErrCorrupt
	}
	var v [6]int64
	for i := range v {
		v[i] = int64(binary.LittleEndian.Uint64(rec[13+i*8 : 21+i*8]))
	}
	box, err := geom.NewBox(
		geom.Point{X: v[0], Y: v[2], Z: v[4]},
		geom.Point{X: v[1], Y: v[3], Z: v[5]},
	)
	if err != nil {
		return instr.Step{}, err
	}
	return instr.Step{On: rec[12] == 1, Box: box}, nil
}

func (j *Journal) Append(step instr.Step) error {
	return j.AppendBatch([]instr.Step{step})
}

// AppendBatch writes all steps and flushes once.
func (j *Journal) AppendBatch(steps []instr.Step) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec := make([]byte, RecordSize)
	for _, s := range steps {
		encodeStep(rec, s)
		if _, err := j.buf.Write(rec); err != nil {
			return err
		}
	}
	return j.buf.Flush()
}

func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.buf.Flush(); err != nil {
		return err
	}
	return j.file.Sync()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.buf.Flush(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}

func (j *Journal) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.buf.Flush(); err != nil {
		return err
	}
	path := j.file.Name()
	if err := j.file.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	j.file = f
	j.buf = bufio.NewWriter(f)
	return j.file.Sync()
}

func (j *Journal) Size() (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.buf.Flush(); err != nil {
		return 0, err
	}
	st, err := j.file.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

type JournalIterator struct {
	reader *bufio.Reader
	file   *os.File
	rec    []byte
}

func (j *Journal) NewIterator() (*JournalIterator, error) {
	f, err := os.Open(j.file.Name())
	if err != nil {
		return nil, err
	}
	return &JournalIterator{
		file:   f,
		reader: bufio.NewReader(f),
		rec:    make([]byte, RecordSize),
	}, nil
}

// Next returns io.EOF after the last complete record. A torn final record
// is reported as io.ErrUnexpectedEOF.
func (it *JournalIterator) Next() (instr.Step, error) {
	if _, err := io.ReadFull(it.reader, it.rec); err != nil {
		return instr.Step{}, err
	}
	return decodeStep(it.rec)
}

func (it *JournalIterator) Close() {
	it.file.Close()
}

// Replay reads every intact step in order. Reading stops at the first torn
// or corrupt record; the steps before it are returned with the error.
func (j *Journal) Replay() ([]instr.Step, error) {
	if err := j.Sync(); err != nil {
		return nil, err
	}
	it, err := j.NewIterator()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var steps []instr.Step
	for {
		s, err := it.Next()
		if err == io.EOF {
			return steps, nil
		}
		if err != nil {
			return steps, err
		}
		steps = append(steps, s)
	}
}
