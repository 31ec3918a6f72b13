package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	nonceSizeGCM      = 12  // AES-GCM nonce size recomendado (96 bits)
	requiredKeyLength = 32  // 32 bytes => AES-256
	sep               = "|" // nonce|ciphertext (ambos en base64)

	hkdfInfo = "laneeditor/oauth-tokens/v1"
)

var (
	// ErrNoKey indica que no hay secreto configurado.
	ErrNoKey = errors.New("secretbox: SECRET_KEY no seteada")

	// ErrFormat indica un texto cifrado con formato inválido.
	ErrFormat = errors.New("secretbox: formato inválido: esperado base64(nonce)|base64(ciphertext)")
)

// Box cifra y descifra strings con AES-256-GCM.
// Es seguro para uso concurrente.
type Box struct {
	aead cipher.AEAD
}

// New crea un Box con una clave cruda de 32 bytes.
func New(key []byte) (*Box, error) {
	if len(key) != requiredKeyLength {
		return nil, fmt.Errorf("secretbox: clave inválida: %d bytes (requiere %d)", len(key), requiredKeyLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// FromSecret deriva la clave con HKDF-SHA256 a partir del SECRET_KEY de la app.
func FromSecret(secret string) (*Box, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrNoKey
	}
	key := make([]byte, requiredKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("secretbox: hkdf: %w", err)
	}
	return New(key)
}

// Encrypt cifra plainText y devuelve base64(nonce)|base64(ciphertext).
// El string vacío se devuelve tal cual (sin token que proteger).
func (b *Box) Encrypt(plainText string) (string, error) {
	if plainText == "" {
		return "", nil
	}
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt recibe base64(nonce)|base64(ciphertext) y devuelve el texto plano.
func (b *Box) Decrypt(cipherText string) (string, error) {
	if cipherText == "" {
		return "", nil
	}
	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", ErrFormat
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("nonce inválido: esperado %d bytes, obtuvo %d", nonceSizeGCM, len(nonce))
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}
