package govee

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		payload []byte
		want    []byte
		wantErr error
	}{
		{
			name:    "power on",
			cmd:     CmdPower,
			payload: []byte{0x01},
			// checksum = 0x33 ^ 0x01 ^ 0x01 = 0x33
			want: []byte{
				0x33, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x33,
			},
		},
		{
			name:    "power off",
			cmd:     CmdPower,
			payload: []byte{0x00},
			// checksum = 0x33 ^ 0x01 = 0x32
			want: []byte{
				0x33, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x32,
			},
		},
		{
			name:    "brightness",
			cmd:     CmdBrightness,
			payload: []byte{0x4E},
			// checksum = 0x33 ^ 0x04 ^ 0x4E = 0x79
			want: []byte{
				0x33, 0x04, 0x4E, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x79,
			},
		},
		{
			name:    "empty payload",
			cmd:     CmdPower,
			payload: nil,
			want: []byte{
				0x33, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x32,
			},
		},
		{
			name:    "maximum payload",
			cmd:     CmdColor,
			payload: bytes.Repeat([]byte{0xAA}, MaxPayload),
		},
		{
			name:    "payload too long",
			cmd:     CmdColor,
			payload: bytes.Repeat([]byte{0xAA}, MaxPayload+1),
			wantErr: ErrPayloadTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.cmd, tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Encode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			if len(got) != FrameSize {
				t.Fatalf("Encode() frame length = %d, want %d", len(got), FrameSize)
			}
			if tt.want != nil && !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = % x, want % x", got, tt.want)
			}

			// Checksum invariant holds for every valid frame.
			var checksum byte
			for _, b := range got[:FrameSize-1] {
				checksum ^= b
			}
			if got[FrameSize-1] != checksum {
				t.Errorf("checksum byte = 0x%02x, want 0x%02x", got[FrameSize-1], checksum)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		{0x01},
		{0x00},
		{0x02, 0xFF, 0x00, 0x80, 0x1A, 0x0B, 0x00, 0x00, 0x00},
		bytes.Repeat([]byte{0x55}, MaxPayload),
	}
	commands := []Command{CmdPower, CmdBrightness, CmdColor}

	for _, cmd := range commands {
		for _, payload := range payloads {
			frame, err := Encode(cmd, payload)
			if err != nil {
				t.Fatalf("Encode(%v, % x) error: %v", cmd, payload, err)
			}

			gotCmd, gotPayload, err := Decode(frame)
			if err != nil {
				t.Fatalf("Decode(% x) error: %v", frame, err)
			}
			if gotCmd != cmd {
				t.Errorf("Decode() cmd = %v, want %v", gotCmd, cmd)
			}
			if !bytes.Equal(gotPayload[:len(payload)], payload) {
				t.Errorf("Decode() payload = % x, want prefix % x", gotPayload, payload)
			}
			// Padding beyond the original payload must be zero.
			for i := len(payload); i < MaxPayload; i++ {
				if gotPayload[i] != 0 {
					t.Errorf("Decode() padding byte %d = 0x%02x, want 0x00", i, gotPayload[i])
				}
			}
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	valid, err := Encode(CmdPower, []byte{0x01})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func([]byte) []byte
		wantErr error
	}{
		{
			name:    "short frame",
			mutate:  func(f []byte) []byte { return f[:10] },
			wantErr: ErrFrameLength,
		},
		{
			name:    "long frame",
			mutate:  func(f []byte) []byte { return append(f, 0x00) },
			wantErr: ErrFrameLength,
		},
		{
			name: "bad magic",
			mutate: func(f []byte) []byte {
				f[0] = 0x34
				return f
			},
			wantErr: ErrFrameMagic,
		},
		{
			name: "corrupted payload byte",
			mutate: func(f []byte) []byte {
				f[5] ^= 0x01
				return f
			},
			wantErr: ErrChecksum,
		},
		{
			name: "corrupted checksum",
			mutate: func(f []byte) []byte {
				f[19] ^= 0xFF
				return f
			},
			wantErr: ErrChecksum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := make([]byte, len(valid))
			copy(frame, valid)
			_, _, err := Decode(tt.mutate(frame))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func BenchmarkEncode(b *testing.B) {
	payload := []byte{0x02, 0xFF, 0x80, 0x00, 0x1A, 0x0B, 0x00, 0x00, 0x00}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(CmdColor, payload); err != nil {
			b.Fatal(err)
		}
	}
}
