// crc32.go - CRC32 (IEEE 802.3, reflected, poly 0xEDB88320) used to protect
// bootloader data packet payloads. This is exactly hash/crc32's IEEE
// polynomial, so we lean on the standard library table instead of hand
// rolling a second table next to the CRC16 one in crc16.go.

package crc

import "hash/crc32"

// IEEE computes the CRC32 (Ethernet polynomial 0xEDB88320, reflected) over
// data, matching the bootloader protocol's DataPacket checksum.
func IEEE(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
