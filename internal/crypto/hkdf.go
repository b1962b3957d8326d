package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"hash"
)

// HKDFSHA256 derives key material using HKDF (RFC 5869) with SHA-256. Used
// to derive independent per-entry sub-keys from the master key so that no
// two stored secrets share an AEAD key.
func HKDFSHA256(key, salt, info []byte, outLen int) ([]byte, error) {
	if outLen <= 0 {
		return nil, errors.New("invalid hkdf length")
	}

	prk := hkdfExtract(salt, key)
	return hkdfExpand(prk, info, outLen), nil
}

// DeriveEntryKey derives the per-entry AEAD sub-key a storage backend
// encrypts one value under, binding info (the storage key) into the HKDF
// expand step so distinct entries never share a key even under the same
// master key.
func DeriveEntryKey(masterKey, info []byte) ([]byte, error) {
	return HKDFSHA256(masterKey, nil, info, KeyLen)
}

func hkdfExtract(salt, inputKeyMaterial []byte) []byte {
	if len(salt) == 0 {
		salt = make([]byte, sha256.Size)
	}
	mac := hmac.New(sha256.New, salt)
	mac.Write(inputKeyMaterial)
	return mac.Sum(nil)
}

func hkdfExpand(prk, info []byte, outLen int) []byte {
	var (
		result []byte
		t      []byte
	)

	h := sha256.New
	hashLen := h().Size()
	rounds := (outLen + hashLen - 1) / hashLen

	counter := byte(1)
	for i := 0; i < rounds; i++ {
		mac := hmac.New(func() hash.Hash { return h() }, prk)
		mac.Write(t)
		mac.Write(info)
		mac.Write([]byte{counter})
		t = mac.Sum(nil)
		result = append(result, t...)
		counter++
	}

	return result[:outLen]
}
