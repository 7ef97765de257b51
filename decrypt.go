// FILE: lixenwraith/props/decrypt.go
package props

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptedMarker prefixes values that DecryptProcessor handles.
// Full form: enc:<algorithm>:<payload>
const EncryptedMarker = "enc:"

// Algorithm names of the built-in decryptors.
const (
	AlgorithmAESGCM    = "aes-gcm"
	AlgorithmXChaCha20 = "xchacha20"
	AlgorithmAge       = "age"
)

// argon2id parameters for passphrase-derived keys
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	kdfSaltLen = 16
)

var (
	errMalformedPayload = errors.New("malformed encrypted payload")
	errUnknownAlgorithm = errors.New("unknown algorithm")
)

// Decryptor turns an algorithm-specific payload back into plaintext.
type Decryptor interface {
	Algorithm() string
	Decrypt(payload string) ([]byte, error)
}

// DecryptProcessor dispatches enc:<algorithm>:<payload> values to the
// decryptor registered for the algorithm.
type DecryptProcessor struct {
	decryptors map[string]Decryptor
}

// NewDecryptProcessor registers decryptors by algorithm name; later entries
// replace earlier ones with the same name.
func NewDecryptProcessor(decryptors ...Decryptor) *DecryptProcessor {
	p := &DecryptProcessor{decryptors: make(map[string]Decryptor, len(decryptors))}
	for _, d := range decryptors {
		p.decryptors[d.Algorithm()] = d
	}
	return p
}

func (p *DecryptProcessor) Name() string { return "decrypt" }

func (p *DecryptProcessor) Applies(raw string) bool {
	return strings.HasPrefix(raw, EncryptedMarker)
}

func (p *DecryptProcessor) Process(raw string) (string, error) {
	rest := strings.TrimPrefix(raw, EncryptedMarker)
	algorithm, payload, ok := strings.Cut(rest, ":")
	if !ok || algorithm == "" {
		return "", fmt.Errorf("%w: missing algorithm", errMalformedPayload)
	}
	d, exists := p.decryptors[algorithm]
	if !exists {
		return "", fmt.Errorf("%w: %q", errUnknownAlgorithm, algorithm)
	}
	plain, err := d.Decrypt(strings.TrimSpace(payload))
	if err != nil {
		return "", fmt.Errorf("%s: %w", algorithm, err)
	}
	return string(plain), nil
}

// AESGCMDecryptor decrypts base64(nonce || ciphertext) with a 16, 24 or 32 byte key.
type AESGCMDecryptor struct {
	aead cipher.AEAD
}

// NewAESGCMDecryptor validates the key and prepares the cipher.
func NewAESGCMDecryptor(key []byte) (*AESGCMDecryptor, error) {
	aead, err := newAESGCM(key)
	if err != nil {
		return nil, err
	}
	return &AESGCMDecryptor{aead: aead}, nil
}

func (d *AESGCMDecryptor) Algorithm() string { return AlgorithmAESGCM }

func (d *AESGCMDecryptor) Decrypt(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedPayload, err)
	}
	ns := d.aead.NonceSize()
	if len(data) < ns+d.aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes", errMalformedPayload, len(data))
	}
	return d.aead.Open(nil, data[:ns], data[ns:], nil)
}

// EncryptAESGCM produces a full enc:aes-gcm: value for plaintext.
func EncryptAESGCM(key, plaintext []byte) (string, error) {
	aead, err := newAESGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return encodeMarked(AlgorithmAESGCM, sealed), nil
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("invalid AES key length: %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// XChaCha20Decryptor decrypts base64(salt || nonce || ciphertext) with a key
// derived from a passphrase by argon2id.
type XChaCha20Decryptor struct {
	passphrase []byte
}

// NewXChaCha20Decryptor creates a decryptor for the given passphrase.
func NewXChaCha20Decryptor(passphrase string) (*XChaCha20Decryptor, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	return &XChaCha20Decryptor{passphrase: []byte(passphrase)}, nil
}

func (d *XChaCha20Decryptor) Algorithm() string { return AlgorithmXChaCha20 }

func (d *XChaCha20Decryptor) Decrypt(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedPayload, err)
	}
	if len(data) < kdfSaltLen+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: %d bytes", errMalformedPayload, len(data))
	}
	salt := data[:kdfSaltLen]
	nonce := data[kdfSaltLen : kdfSaltLen+chacha20poly1305.NonceSizeX]
	ciphertext := data[kdfSaltLen+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(deriveKey(d.passphrase, salt))
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

// EncryptXChaCha20 produces a full enc:xchacha20: value for plaintext.
func EncryptXChaCha20(passphrase string, plaintext []byte) (string, error) {
	if passphrase == "" {
		return "", errors.New("empty passphrase")
	}
	buf := make([]byte, kdfSaltLen+chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt, nonce := buf[:kdfSaltLen], buf[kdfSaltLen:]

	aead, err := chacha20poly1305.NewX(deriveKey([]byte(passphrase), salt))
	if err != nil {
		return "", err
	}
	sealed := aead.Seal(buf, nonce, plaintext, nil)
	return encodeMarked(AlgorithmXChaCha20, sealed), nil
}

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
}

// AgeDecryptor decrypts base64-encoded binary age files.
type AgeDecryptor struct {
	identities []age.Identity
}

// NewAgeDecryptor parses one or more identities in the age key file format
// (AGE-SECRET-KEY-1... lines, comments allowed).
func NewAgeDecryptor(identities string) (*AgeDecryptor, error) {
	ids, err := age.ParseIdentities(strings.NewReader(identities))
	if err != nil {
		return nil, fmt.Errorf("parse age identities: %w", err)
	}
	return &AgeDecryptor{identities: ids}, nil
}

func (d *AgeDecryptor) Algorithm() string { return AlgorithmAge }

func (d *AgeDecryptor) Decrypt(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedPayload, err)
	}
	r, err := age.Decrypt(bytes.NewReader(data), d.identities...)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// EncryptAge produces a full enc:age: value readable by any of recipients
// (age1... strings).
func EncryptAge(plaintext []byte, recipients ...string) (string, error) {
	if len(recipients) == 0 {
		return "", errors.New("no age recipients")
	}
	rs := make([]age.Recipient, 0, len(recipients))
	for _, s := range recipients {
		r, err := age.ParseX25519Recipient(s)
		if err != nil {
			return "", fmt.Errorf("parse recipient: %w", err)
		}
		rs = append(rs, r)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, rs...)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return encodeMarked(AlgorithmAge, buf.Bytes()), nil
}

// GenerateAgeIdentity returns a new x25519 secret key and its public recipient.
func GenerateAgeIdentity() (identity, recipient string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", err
	}
	return id.String(), id.Recipient().String(), nil
}

func encodeMarked(algorithm string, payload []byte) string {
	return EncryptedMarker + algorithm + ":" + base64.StdEncoding.EncodeToString(payload)
}
