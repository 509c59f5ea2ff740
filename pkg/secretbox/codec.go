// Package secretbox encrypts credential fields at rest.
//
// Values are stored as hex(iv) + ":" + hex(ciphertext) using AES-256-CBC with
// PKCS#7 padding and a random IV per value. The key is normalized to exactly 32
// UTF-16 code units (right-padded with '0', truncated) before UTF-8 encoding so
// values written by earlier deployments keep decrypting.
package secretbox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"go.uber.org/zap"
)

const (
	keySize   = 32
	separator = ":"
)

var (
	errInvalidKey        = errors.New("secretbox: key must encode to 32 bytes")
	errMalformedPayload  = errors.New("secretbox: malformed payload")
	errInvalidPadding    = errors.New("secretbox: invalid padding")
	errInvalidBlockInput = errors.New("secretbox: ciphertext is not a multiple of the block size")
)

// Codec encrypts and decrypts individual secret values. It never returns an
// error: on failure the input is returned unchanged and a warning is logged.
type Codec struct {
	key []byte
	log *zap.Logger
}

// NewCodec builds a Codec from the process-wide key.
func NewCodec(key string, log *zap.Logger) *Codec {
	if log == nil {
		log = zap.NewNop()
	}
	return &Codec{
		key: NormalizeKey(key),
		log: log.Named("secretbox"),
	}
}

// NormalizeKey pads key with '0' up to 32 UTF-16 code units and truncates it to
// 32, then returns its UTF-8 encoding.
func NormalizeKey(key string) []byte {
	units := utf16.Encode([]rune(key))
	for len(units) < keySize {
		units = append(units, '0')
	}
	units = units[:keySize]
	return []byte(string(utf16.Decode(units)))
}

// Encrypt returns hex(iv):hex(ciphertext). Empty input is returned as is.
func (c *Codec) Encrypt(plain string) string {
	if plain == "" {
		return plain
	}
	out, err := c.encrypt(plain)
	if err != nil {
		c.log.Warn("encrypt secret failed, storing original value", zap.Error(err))
		return plain
	}
	return out
}

// Decrypt reverses Encrypt. Values that are empty or carry no separator are
// returned unchanged, as are values that fail to decrypt.
func (c *Codec) Decrypt(value string) string {
	if value == "" || !strings.Contains(value, separator) {
		return value
	}
	out, err := c.decrypt(value)
	if err != nil {
		c.log.Warn("decrypt secret failed, returning stored value", zap.Error(err))
		return value
	}
	return out
}

// IsEncrypted reports whether value has the shape produced by Encrypt.
func IsEncrypted(value string) bool {
	ivHex, ctHex, ok := strings.Cut(value, separator)
	if !ok || len(ivHex) != aes.BlockSize*2 || ctHex == "" {
		return false
	}
	if _, err := hex.DecodeString(ivHex); err != nil {
		return false
	}
	_, err := hex.DecodeString(ctHex)
	return err == nil
}

func (c *Codec) block() (cipher.Block, error) {
	if len(c.key) != keySize {
		return nil, errInvalidKey
	}
	return aes.NewCipher(c.key)
}

func (c *Codec) encrypt(plain string) (string, error) {
	block, err := c.block()
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("secretbox: read iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + separator + hex.EncodeToString(ciphertext), nil
}

func (c *Codec) decrypt(value string) (string, error) {
	block, err := c.block()
	if err != nil {
		return "", err
	}

	parts := strings.Split(value, separator)
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return "", errMalformedPayload
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", errMalformedPayload
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", errInvalidBlockInput
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
