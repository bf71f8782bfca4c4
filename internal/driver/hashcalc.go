package driver

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/vmihailenco/msgpack/v5"

	"firopt/internal/config"
	"firopt/internal/irfile"
	"firopt/internal/version"
)

// Digest is a SHA-256 cache key.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports an unset digest.
func (d Digest) IsZero() bool { return d == Digest{} }

// cacheSettings is everything besides the input that changes the output.
type cacheSettings struct {
	Version string
	Format  string
	Emit    string
	Passes  config.Passes
	Extract config.Extract
}

// cacheKey: H(settings || input).
func cacheKey(input []byte, cfg config.Config, emit irfile.Encoding) (Digest, error) {
	settings, err := msgpack.Marshal(cacheSettings{
		Version: version.Version,
		Format:  irfile.FormatVersion,
		Emit:    emit.String(),
		Passes:  cfg.Passes,
		Extract: cfg.Extract,
	})
	if err != nil {
		return Digest{}, err
	}
	h := sha256.New()
	_, _ = h.Write(settings)
	_, _ = h.Write(input)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}
