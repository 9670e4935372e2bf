package schema

// emptyCRC64 is the CRC-64-AVRO fingerprint of the empty string.
const emptyCRC64 uint64 = 0xc15d213aa4d7a795

var crc64Table = func() (table [256]uint64) {
	for i := range table {
		fp := uint64(i)
		for j := 0; j < 8; j++ {
			fp = (fp >> 1) ^ (emptyCRC64 & -(fp & 1))
		}
		table[i] = fp
	}
	return table
}()

// Fingerprint returns the 64-bit Rabin fingerprint (CRC-64-AVRO) of the
// canonical form of s.
func Fingerprint(s Schema) uint64 {
	fp := emptyCRC64
	for _, b := range []byte(s.String()) {
		fp = (fp >> 8) ^ crc64Table[byte(fp)^b]
	}
	return fp
}
