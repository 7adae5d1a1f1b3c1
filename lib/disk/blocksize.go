package disk

// MaxBlockSize bounds the copy buffer used while assembling images.
const MaxBlockSize = 1 << 20

// BestBlockSize returns the largest power of two no greater than MaxBlockSize
// that divides size evenly and is strictly less than it. Sizes with no such
// divisor above one byte (including 0 and 1) get 1.
func BestBlockSize(size uint64) uint64 {
	for bs := uint64(MaxBlockSize); bs > 1; bs /= 2 {
		if size > bs && size%bs == 0 {
			return bs
		}
	}
	return 1
}
