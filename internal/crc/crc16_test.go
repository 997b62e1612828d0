package crc

import "testing"

func TestCCITTStandardVector(t *testing.T) {
	got := CCITT([]byte("123456789"))
	if got != 0x29B1 {
		t.Fatalf("CCITT(\"123456789\") = 0x%04X, want 0x29B1", got)
	}
}

func TestUpdateCCITTMatchesOneShot(t *testing.T) {
	data := []byte("123456789")
	oneShot := CCITT(data)

	running := CCITTInit
	running = UpdateCCITT(running, data[:4])
	running = UpdateCCITT(running, data[4:])

	if running != oneShot {
		t.Fatalf("incremental CRC = 0x%04X, one-shot = 0x%04X", running, oneShot)
	}
}
