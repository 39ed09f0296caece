package frame

import (
	"bytes"
	"testing"
)

func TestEncodeBCC_S1(t *testing.T) {
	dest := NewAddr(DeviceLCS, 1, 1)
	src := HostAddr
	data := []byte{0x01, 0x05, 0x00, 0x50}

	buf := Encode(dest, src, 0x92, 0x00, data)

	if len(buf) != 22 {
		t.Fatalf("expected length 22, got %d", len(buf))
	}
	// Words over bytes [3,19): 1301+0100+0013+0000+0000+9200+0105+0050 = 0xA769;
	// its one's complement 0x5896 is stored little-endian as 96 58.
	if buf[15+len(data)] != 0x96 || buf[15+len(data)+1] != 0x58 {
		t.Fatalf("BCC mismatch: got %02X %02X, want 96 58", buf[19], buf[20])
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"even", []byte{0x01, 0x02, 0x03, 0x04}},
		{"odd", []byte{0x01, 0x02, 0x03}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dest := NewAddr(DeviceLCS, 2, 3)
			buf := Encode(dest, HostAddr, 0x96, 0x00, c.data)

			res := TryDecode(buf)
			if !res.Complete || res.Corrupt {
				t.Fatalf("expected complete non-corrupt decode, got %+v", res)
			}
			if res.Consumed != len(buf) {
				t.Fatalf("expected to consume %d bytes, got %d", len(buf), res.Consumed)
			}
			if res.Frame.OP1 != 0x96 || res.Frame.OP2 != 0x00 {
				t.Fatalf("opcode mismatch: %02X %02X", res.Frame.OP1, res.Frame.OP2)
			}
			if !bytes.Equal(res.Frame.Data, c.data) {
				t.Fatalf("data mismatch: got %v want %v", res.Frame.Data, c.data)
			}
			if res.Frame.DestAddr != dest {
				t.Fatalf("dest addr mismatch: got %v want %v", res.Frame.DestAddr, dest)
			}
		})
	}
}

func TestTryDecodeIncomplete(t *testing.T) {
	dest := NewAddr(DeviceLCS, 1, 1)
	buf := Encode(dest, HostAddr, 0x96, 0x00, nil)

	for n := 0; n < len(buf); n++ {
		res := TryDecode(buf[:n])
		if res.Complete {
			t.Fatalf("expected incomplete at prefix length %d", n)
		}
	}
}

func TestTryDecodeResyncOnGarbagePrefix_S2(t *testing.T) {
	dest := NewAddr(DeviceLCS, 1, 1)
	good := Encode(dest, HostAddr, 0x96, 0x00, nil)

	stream := append([]byte{0xFF}, good...)

	res := TryDecode(stream)
	if !res.Corrupt || res.Consumed != 1 {
		t.Fatalf("expected a single-byte corrupt resync, got %+v", res)
	}

	res = TryDecode(stream[1:])
	if !res.Complete || res.Corrupt {
		t.Fatalf("expected a clean frame after resync, got %+v", res)
	}
	if res.Consumed != len(good) {
		t.Fatalf("expected to consume %d bytes, got %d", len(good), res.Consumed)
	}
}

func TestTryDecodeBadChecksumResyncs(t *testing.T) {
	dest := NewAddr(DeviceLCS, 1, 1)
	buf := Encode(dest, HostAddr, 0x96, 0x00, []byte{0x01})
	buf[len(buf)-2] ^= 0xFF // corrupt the BCC low byte

	res := TryDecode(buf)
	if !res.Corrupt || res.Consumed != 1 {
		t.Fatalf("expected corrupt resync on bad checksum, got %+v", res)
	}
}

func TestTryDecodeBadETXResyncs(t *testing.T) {
	dest := NewAddr(DeviceLCS, 1, 1)
	buf := Encode(dest, HostAddr, 0x96, 0x00, nil)
	buf[len(buf)-1] = 0x00

	res := TryDecode(buf)
	if !res.Corrupt || res.Consumed != 1 {
		t.Fatalf("expected corrupt resync on bad ETX, got %+v", res)
	}
}

func TestNeverHangsOnRandomBytes(t *testing.T) {
	stream := []byte{0x02, 0xFF, 0xFF, 0x02, 0x00, 0x05, 0x03, 0x00, 0x01}
	consumed := 0
	iterations := 0
	for consumed < len(stream) {
		iterations++
		if iterations > len(stream)*2+10 {
			t.Fatal("decoder appears to be stuck")
		}
		res := TryDecode(stream[consumed:])
		if !res.Complete {
			break
		}
		consumed += res.Consumed
	}
}
