package model

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ocrtools/corasv/pkg/vocab"
)

// ErrModelLoad marks a corrupt or incompatible parameter bundle. It is fatal
// for any session that wanted to use the bundle and is surfaced before any
// decoding attempt.
var ErrModelLoad = errors.New("model: load failed")

// Bundle container layout (all integers little-endian):
//
//	magic "CASV" | uint32 version
//	uint32 embedDim | hiddenDim | contextDim | window
//	uint32 symbolCount | symbolCount × uint32 rune
//	uint32 tensorCount | tensorCount × (uint16 nameLen | name |
//	                                    uint32 valueCount | float32 values)
const (
	bundleMagic   = "CASV"
	bundleVersion = 1
)

// Load reads a parameter bundle from path. The returned Model is fully
// validated: every required weight group is present with the exact size the
// header's hyperparameters demand.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	defer f.Close()
	m, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return m, nil
}

// Read decodes a parameter bundle from r.
func Read(r io.Reader) (*Model, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", ErrModelLoad, err)
	}
	if string(magic[:]) != bundleMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrModelLoad, magic[:])
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: reading version: %v", ErrModelLoad, err)
	}
	if version != bundleVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrModelLoad, version)
	}

	var dims [4]uint32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("%w: reading dimensions: %v", ErrModelLoad, err)
	}
	m := &Model{Params: Params{
		EmbedDim:   int(dims[0]),
		HiddenDim:  int(dims[1]),
		ContextDim: int(dims[2]),
		Window:     int(dims[3]),
	}}
	if m.EmbedDim <= 0 || m.HiddenDim <= 0 || m.Window <= 0 || m.ContextDim < 0 {
		return nil, fmt.Errorf("%w: implausible dimensions %+v", ErrModelLoad, m.Params)
	}

	var symbolCount uint32
	if err := binary.Read(r, binary.LittleEndian, &symbolCount); err != nil {
		return nil, fmt.Errorf("%w: reading symbol count: %v", ErrModelLoad, err)
	}
	runes := make([]uint32, symbolCount)
	if err := binary.Read(r, binary.LittleEndian, runes); err != nil {
		return nil, fmt.Errorf("%w: reading symbols: %v", ErrModelLoad, err)
	}
	symbols := make([]rune, symbolCount)
	for i, u := range runes {
		symbols[i] = rune(u)
	}
	voc, err := vocab.New(symbols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	m.Vocab = voc
	m.Enc = LSTM{InputDim: m.EmbedDim, HiddenDim: m.HiddenDim}
	m.Dec = LSTM{InputDim: m.EmbedDim + m.HiddenDim, HiddenDim: m.HiddenDim}

	wanted := make(map[string]namedTensor)
	for _, t := range m.tensors() {
		wanted[t.name] = t
	}

	var tensorCount uint32
	if err := binary.Read(r, binary.LittleEndian, &tensorCount); err != nil {
		return nil, fmt.Errorf("%w: reading tensor count: %v", ErrModelLoad, err)
	}
	for i := uint32(0); i < tensorCount; i++ {
		name, err := readTensorName(r)
		if err != nil {
			return nil, err
		}
		t, ok := wanted[name]
		if !ok {
			return nil, fmt.Errorf("%w: unexpected tensor %q", ErrModelLoad, name)
		}
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return nil, fmt.Errorf("%w: reading tensor %q size: %v", ErrModelLoad, name, err)
		}
		// Checked against the size the header demands before allocating, so a
		// corrupt count cannot force a huge allocation.
		if int(count) != t.size {
			return nil, fmt.Errorf("%w: tensor %q has %d values, want %d",
				ErrModelLoad, name, count, t.size)
		}
		data := make([]float32, count)
		if err := binary.Read(r, binary.LittleEndian, data); err != nil {
			return nil, fmt.Errorf("%w: tensor %q truncated: %v", ErrModelLoad, name, err)
		}
		*t.data = data
		delete(wanted, name)
	}
	for name := range wanted {
		return nil, fmt.Errorf("%w: missing weight group %q", ErrModelLoad, name)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	return m, nil
}

func readTensorName(r io.Reader) (string, error) {
	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return "", fmt.Errorf("%w: reading tensor name length: %v", ErrModelLoad, err)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return "", fmt.Errorf("%w: reading tensor name: %v", ErrModelLoad, err)
	}
	return string(name), nil
}

// Save writes the bundle for m to path. Used by training-side tooling and by
// tests that round-trip synthetic models.
func Save(m *Model, path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := Write(m, w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes m into w in bundle format.
func Write(m *Model, w io.Writer) error {
	if _, err := w.Write([]byte(bundleMagic)); err != nil {
		return err
	}
	header := []uint32{
		bundleVersion,
		uint32(m.EmbedDim), uint32(m.HiddenDim),
		uint32(m.ContextDim), uint32(m.Window),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	symbols := m.Vocab.Symbols()
	runes := make([]uint32, len(symbols))
	for i, r := range symbols {
		runes[i] = uint32(r)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(runes))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, runes); err != nil {
		return err
	}
	tensors := m.tensors()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(tensors))); err != nil {
		return err
	}
	for _, t := range tensors {
		if err := binary.Write(w, binary.LittleEndian, uint16(len(t.name))); err != nil {
			return err
		}
		if _, err := w.Write([]byte(t.name)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(*t.data))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, *t.data); err != nil {
			return err
		}
	}
	return nil
}
