package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"testing"
)

// fakeRunner simulates command execution.
type fakeRunner struct {
	run func(ctx context.Context, name string, args []string, onLine func(string)) (commandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, name, args, onLine)
}

// makeWAV builds a mono 16 kHz 16-bit PCM file with dataBytes of silence and
// an extra LIST chunk before the data.
func makeWAV(dataBytes int) []byte {
	var buf bytes.Buffer
	le := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	le(uint32(4 + 8 + 16 + 8 + 3 + 1 + 8 + dataBytes))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1))     // PCM
	le(uint16(1))     // channels
	le(uint32(16000)) // sample rate
	le(uint32(32000)) // byte rate
	le(uint16(2))     // block align
	le(uint16(16))    // bits per sample

	buf.WriteString("LIST")
	le(uint32(3))
	buf.WriteString("abc")
	buf.WriteByte(0)

	buf.WriteString("data")
	le(uint32(dataBytes))
	buf.Write(make([]byte, dataBytes))
	return buf.Bytes()
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
