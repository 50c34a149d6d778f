package flux

// Bits is an ordered bit sequence. Values are never modified after
// construction; every combinator returns a fresh sequence.
type Bits []bool

// BitsFromBytes expands data most-significant bit first.
func BitsFromBytes(data []byte) Bits {
	out := make(Bits, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			out = append(out, b&(1<<uint(i)) != 0)
		}
	}
	return out
}

// Zeros returns n zero bits.
func Zeros(n int) Bits {
	if n < 0 {
		n = 0
	}
	return make(Bits, n)
}

// Repeat returns b concatenated with itself n times.
func (b Bits) Repeat(n int) Bits {
	if n <= 0 {
		return Bits{}
	}
	out := make(Bits, 0, len(b)*n)
	for i := 0; i < n; i++ {
		out = append(out, b...)
	}
	return out
}

// Concat joins sequences in order.
func Concat(parts ...Bits) Bits {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make(Bits, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Ones counts the set bits.
func (b Bits) Ones() int {
	n := 0
	for _, v := range b {
		if v {
			n++
		}
	}
	return n
}

// Search returns the start offset of every occurrence of pattern in b.
func (b Bits) Search(pattern Bits) []int {
	if len(pattern) == 0 || len(pattern) > len(b) {
		return nil
	}
	var hits []int
outer:
	for i := 0; i+len(pattern) <= len(b); i++ {
		for j, v := range pattern {
			if b[i+j] != v {
				continue outer
			}
		}
		hits = append(hits, i)
	}
	return hits
}

// Bytes packs the sequence MSB first, zero padding the final byte.
func (b Bits) Bytes() []byte {
	out := make([]byte, (len(b)+7)/8)
	for i, v := range b {
		if v {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}
