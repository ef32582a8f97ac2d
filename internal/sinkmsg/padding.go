package sinkmsg

// BlockSize is the response padding granularity (spec §4.5: "zero-padded
// to a multiple of a fixed block size (256 bytes) to mitigate
// length-based traffic analysis").
const BlockSize = 256

// PadResponse zero-pads data to the next multiple of BlockSize, applied at
// the rpcserver boundary to every handle/query response.
func PadResponse(data []byte) []byte {
	rem := len(data) % BlockSize
	if rem == 0 {
		return data
	}
	padded := make([]byte, len(data)+(BlockSize-rem))
	copy(padded, data)
	return padded
}
