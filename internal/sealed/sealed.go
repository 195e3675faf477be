// Package sealed implements the confidential-value capability used for
// reserve prices and bid amounts: values travel as opaque encrypted handles
// plus a commitment proof, and numeric comparison is only available through
// a Comparator backed by the platform key.
package sealed

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
)

// Handle is the CBOR-encoded wire form of a sealed value.
type Handle []byte

// Proof is the hex-encoded commitment that binds a Handle at submission time.
type Proof string

var (
	ErrBadHandle = errors.New("malformed sealed handle")
	ErrBadProof  = errors.New("proof does not match sealed handle")
)

// envelope is the decoded form of a Handle.
type envelope struct {
	Ciphertext []byte `cbor:"1,keyasint"`
	Nonce      []byte `cbor:"2,keyasint"`
	Commitment []byte `cbor:"3,keyasint"`
}

// Comparator performs ordering decisions over sealed values without ever
// exposing plaintext to the caller. Settlement depends on this interface only.
type Comparator interface {
	// Max returns the index of the largest sealed value.
	Max(handles []Handle) (int, error)
	// AtLeast reports whether a >= b.
	AtLeast(a, b Handle) (bool, error)
}

// Seal encrypts amount under the platform key and returns the handle plus
// the commitment proof the submitter must present alongside it.
func (km *KeyManager) Seal(amount decimal.Decimal) (Handle, Proof, error) {
	nonce := make([]byte, km.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, "", fmt.Errorf("entropy generation failed: %w", err)
	}

	ct := km.aead.Seal(nil, nonce, []byte(amount.String()), nil)
	commitment := computeCommitment(ct, nonce)

	raw, err := cbor.Marshal(envelope{
		Ciphertext: ct,
		Nonce:      nonce,
		Commitment: commitment,
	})
	if err != nil {
		return nil, "", fmt.Errorf("encode sealed envelope: %w", err)
	}
	return Handle(raw), Proof(hex.EncodeToString(commitment)), nil
}

// Open decrypts a handle. Only settlement-adjacent code paths may call this,
// always via the Comparator.
func (km *KeyManager) Open(h Handle) (decimal.Decimal, error) {
	env, err := decode(h)
	if err != nil {
		return decimal.Zero, err
	}
	plain, err := km.aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("open sealed value: %w", err)
	}
	v, err := decimal.NewFromString(string(plain))
	if err != nil {
		return decimal.Zero, fmt.Errorf("sealed value is not numeric: %w", err)
	}
	return v, nil
}

// Max implements Comparator.
func (km *KeyManager) Max(handles []Handle) (int, error) {
	if len(handles) == 0 {
		return -1, errors.New("no sealed values to compare")
	}
	best := 0
	bestVal, err := km.Open(handles[0])
	if err != nil {
		return -1, err
	}
	for i := 1; i < len(handles); i++ {
		v, err := km.Open(handles[i])
		if err != nil {
			return -1, err
		}
		if v.GreaterThan(bestVal) {
			best, bestVal = i, v
		}
	}
	return best, nil
}

// AtLeast implements Comparator.
func (km *KeyManager) AtLeast(a, b Handle) (bool, error) {
	av, err := km.Open(a)
	if err != nil {
		return false, err
	}
	bv, err := km.Open(b)
	if err != nil {
		return false, err
	}
	return av.GreaterThanOrEqual(bv), nil
}

// VerifyProof checks, without decrypting, that the submitted proof matches
// the commitment embedded in the handle and that the commitment itself is
// consistent with the ciphertext.
func VerifyProof(h Handle, p Proof) error {
	env, err := decode(h)
	if err != nil {
		return err
	}
	want := computeCommitment(env.Ciphertext, env.Nonce)
	if !bytes.Equal(want, env.Commitment) {
		return ErrBadHandle
	}
	got, err := hex.DecodeString(string(p))
	if err != nil || !bytes.Equal(got, want) {
		return ErrBadProof
	}
	return nil
}

func decode(h Handle) (*envelope, error) {
	var env envelope
	if err := cbor.Unmarshal(h, &env); err != nil {
		return nil, ErrBadHandle
	}
	if len(env.Ciphertext) == 0 || len(env.Nonce) == 0 {
		return nil, ErrBadHandle
	}
	return &env, nil
}

func computeCommitment(ciphertext, nonce []byte) []byte {
	hsh := sha256.New()
	hsh.Write(ciphertext)
	hsh.Write(nonce)
	return hsh.Sum(nil)
}
