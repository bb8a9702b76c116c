package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"
)

var (
	// ErrInvalidSeedMaterial is returned when a seed is empty or not valid UTF-8.
	ErrInvalidSeedMaterial = errors.New("invalid seed material")

	// ErrImpossibleDraw is returned when the request cannot yield enough
	// distinct values from the alphabet.
	ErrImpossibleDraw = errors.New("impossible draw")
)

// maxModulus is the size of the byte alphabet each draw reads. A modulus
// above it would leave values unreachable.
const maxModulus = 256

// hashChain walks a SHA-256 hex digest chain, two hex characters (one byte)
// per draw. When the current digest is exhausted it is re-hashed together
// with the count of values accepted so far, so the byte space renews and a
// draw always terminates.
type hashChain struct {
	digest string
	cursor int
}

// newHashChain seeds the chain with SHA256_hex(serverSeed:clientSeed:nonce).
func newHashChain(serverSeed, clientSeed string, nonce uint64) *hashChain {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", serverSeed, clientSeed, nonce)))
	return &hashChain{digest: hex.EncodeToString(sum[:])}
}

// NextByte returns the next byte of the chain. accepted is the number of
// values collected so far; it is folded into the digest on re-hash.
func (hc *hashChain) NextByte(accepted int) byte {
	if hc.cursor+2 > len(hc.digest) {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", hc.digest, accepted)))
		hc.digest = hex.EncodeToString(sum[:])
		hc.cursor = 0
	}
	// digest is always lowercase hex, so parsing cannot fail
	b, _ := strconv.ParseUint(hc.digest[hc.cursor:hc.cursor+2], 16, 8)
	hc.cursor += 2
	return byte(b)
}

// Draw derives count distinct values in [offset, offset+modulus-1] from the
// committed inputs, ascending-sorted. The mapping is a pure function of
// (serverSeed, clientSeed, nonce) and must stay bit-for-bit stable: any
// conforming reimplementation has to reproduce it for independent
// verification. Candidates already produced for this call are discarded
// without consuming an output slot.
func Draw(serverSeed, clientSeed string, nonce uint64, count, modulus, offset int) ([]int, error) {
	if serverSeed == "" || !utf8.ValidString(serverSeed) {
		return nil, fmt.Errorf("%w: server seed", ErrInvalidSeedMaterial)
	}
	if clientSeed == "" || !utf8.ValidString(clientSeed) {
		return nil, fmt.Errorf("%w: client seed", ErrInvalidSeedMaterial)
	}
	if modulus < 1 || modulus > maxModulus {
		return nil, fmt.Errorf("%w: modulus %d outside [1, %d]", ErrImpossibleDraw, modulus, maxModulus)
	}
	if count < 1 || count > modulus {
		return nil, fmt.Errorf("%w: cannot draw %d distinct values from an alphabet of %d", ErrImpossibleDraw, count, modulus)
	}

	chain := newHashChain(serverSeed, clientSeed, nonce)
	seen := make(map[int]bool, count)
	values := make([]int, 0, count)

	for len(values) < count {
		b := chain.NextByte(len(values))
		v := offset + int(b)%modulus
		if seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}

	sort.Ints(values)
	return values, nil
}

// HashSeed returns the SHA-256 commitment of a seed as lowercase hex. The
// commitment is published before the seed is used and the raw seed must
// hash back to it on disclosure.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}
