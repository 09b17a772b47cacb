package services

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrInvalidWAV = errors.New("invalid wav file")

// WAVDuration reads the RIFF header of a PCM WAV file and returns the
// duration of its data chunk in seconds.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return readWAVDuration(f)
}

func readWAVDuration(r io.Reader) (float64, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, fmt.Errorf("%w: missing RIFF/WAVE magic", ErrInvalidWAV)
	}

	var byteRate uint32
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return 0, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return 0, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
			}
			byteRate = binary.LittleEndian.Uint32(body[8:12])
		case "data":
			if byteRate == 0 {
				return 0, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			return float64(size) / float64(byteRate), nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
			}
		}

		if size%2 == 1 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
			}
		}
	}
}
