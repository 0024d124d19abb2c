package model

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ocrtools/corasv/pkg/vocab"
)

func TestBundleRoundTrip(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abcdef", 3)
	var buf bytes.Buffer
	if err := Write(m, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Params != m.Params {
		t.Errorf("params %+v, want %+v", got.Params, m.Params)
	}
	if got.Vocab.Size() != m.Vocab.Size() {
		t.Errorf("vocab size %d, want %d", got.Vocab.Size(), m.Vocab.Size())
	}
	want, have := m.tensors(), got.tensors()
	for i := range want {
		if !bytes.Equal(float32Bytes(*want[i].data), float32Bytes(*have[i].data)) {
			t.Errorf("tensor %s differs after round trip", want[i].name)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	m := testModel(t, "xyz", 0)
	path := filepath.Join(t.TempDir(), "m.casv")
	if err := Save(m, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Vocab.Size() != m.Vocab.Size() || got.Params != m.Params {
		t.Errorf("loaded model %+v does not match saved %+v", got.Params, m.Params)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.casv")); !errors.Is(err, ErrModelLoad) {
		t.Errorf("err=%v, want ErrModelLoad", err)
	}
}

func TestReadCorruptBundles(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abc", 0)
	var buf bytes.Buffer
	if err := Write(m, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	good := buf.Bytes()

	badMagic := append([]byte("XASV"), good[4:]...)
	badVersion := bytes.Clone(good)
	badVersion[4] = 9
	truncated := good[:len(good)-10]

	// Dropping one tensor from the count leaves a required weight group
	// unfilled.
	missing := bytes.Clone(good)
	countOff := 4 + 4 + 16 + 4 + 4*(m.Vocab.Size()-vocab.NumReserved)
	n := binary.LittleEndian.Uint32(missing[countOff:])
	binary.LittleEndian.PutUint32(missing[countOff:], n-1)

	cases := []struct {
		name string
		data []byte
	}{
		{"bad magic", badMagic},
		{"unsupported version", badVersion},
		{"truncated", truncated},
		{"missing weight group", missing},
		{"empty", nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Read(bytes.NewReader(tc.data)); !errors.Is(err, ErrModelLoad) {
				t.Errorf("err=%v, want ErrModelLoad", err)
			}
		})
	}
}

func TestReadRejectsWrongTensorSize(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abc", 0)
	m.OutB = m.OutB[:len(m.OutB)-1]
	var buf bytes.Buffer
	if err := Write(m, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Read(&buf); !errors.Is(err, ErrModelLoad) {
		t.Errorf("err=%v, want ErrModelLoad", err)
	}
}

// A corrupt count field must be rejected against the expected tensor size
// before anything is allocated, no matter how large it claims to be.
func TestReadRejectsOversizedTensorCount(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abc", 0)
	var buf bytes.Buffer
	buf.WriteString(bundleMagic)
	binary.Write(&buf, binary.LittleEndian, []uint32{
		bundleVersion,
		uint32(m.EmbedDim), uint32(m.HiddenDim), 0, uint32(m.Window),
	})
	symbols := m.Vocab.Symbols()
	binary.Write(&buf, binary.LittleEndian, uint32(len(symbols)))
	for _, r := range symbols {
		binary.Write(&buf, binary.LittleEndian, uint32(r))
	}
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	binary.Write(&buf, binary.LittleEndian, uint16(len("embedding")))
	buf.WriteString("embedding")
	binary.Write(&buf, binary.LittleEndian, uint32(0xfffffff0))

	if _, err := Read(&buf); !errors.Is(err, ErrModelLoad) {
		t.Errorf("err=%v, want ErrModelLoad", err)
	}
}

func TestSaveRejectsInvalidModel(t *testing.T) {
	t.Parallel()

	m := testModel(t, "abc", 0)
	m.AttnQuery = nil
	if err := Save(m, filepath.Join(t.TempDir(), "m.casv")); err == nil {
		t.Error("Save accepted a model with a missing weight group")
	}
}

func float32Bytes(data []float32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, data)
	return buf.Bytes()
}
