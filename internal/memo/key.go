package memo

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"

	"github.com/san-kum/cellsim/internal/battery"
)

// Key identifies one simulation request.
type Key [sha256.Size]byte

// KeyOf hashes the canonical parameter tuple, namespaced by the backend
// fingerprint so results from different solvers never mix.
func KeyOf(namespace string, p battery.Parameters) Key {
	h := sha256.New()
	writeString(h, namespace)
	writeString(h, string(p.Chemistry))

	var buf [8]byte
	for _, v := range []float64{
		p.ChargeCurrent,
		p.AmbientTemperature,
		p.CoolingCoefficient,
		p.AnodeThickness,
		p.CathodeThickness,
		p.ParticleRadius,
		p.ActiveMaterialFraction,
	} {
		if v == 0 {
			v = 0 // folds -0 into +0
		}
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

func writeString(w io.Writer, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	w.Write(n[:])
	io.WriteString(w, s)
}
