package derive

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"image"

	"github.com/disintegration/imaging"
)

// DigestLength is the number of hex characters kept from the pixel hash.
const DigestLength = 6

// Fingerprint identifies a decoded source image.
type Fingerprint struct {
	Digest string
	Width  int
	Height int
}

// FingerprintImage hashes the decoded pixels of img. Container metadata
// (EXIF, compression settings) does not contribute, so only visible edits
// change the digest.
func FingerprintImage(img image.Image) Fingerprint {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()

	hasher := sha256.New()
	var dims [16]byte
	binary.BigEndian.PutUint64(dims[:8], uint64(bounds.Dx()))
	binary.BigEndian.PutUint64(dims[8:], uint64(bounds.Dy()))
	hasher.Write(dims[:])
	hasher.Write(nrgba.Pix)

	sum := hex.EncodeToString(hasher.Sum(nil))
	return Fingerprint{
		Digest: sum[:DigestLength],
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
}
