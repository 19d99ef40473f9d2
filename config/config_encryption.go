package config

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

const (
	// EncryptConfirmString prefixes encrypted config files so they can be
	// recognised before decryption
	EncryptConfirmString = "OMNI-VAULT"
	// SaltPrefix string
	SaltPrefix           = "~OMNI~SALT~"
	// SaltRandomLength is the number of random bytes to append after the prefix string
	SaltRandomLength     = 12

	minPasswordLength = 8
	scryptN           = 32768
	scryptR           = 8
	scryptP           = 1
	keyLength         = 32
)

var (
	errCiphertextTooShort = errors.New("config data is too small to hold the encryption nonce")
	errNoPrefix           = errors.New("data does not start with the encryption confirmation string")
	errSaltMissing        = errors.New("encrypted config salt is missing")
	errPasswordTooShort   = errors.New("password is too short")
	errPasswordMismatch   = errors.New("passwords do not match")
)

// PromptForConfigKey asks for the config password on stdin. When
// initialSetup is set the password is asked for twice.
func PromptForConfigKey(initialSetup bool) ([]byte, error) {
	return promptForConfigKey(os.Stdin, os.Stdout, initialSetup)
}

func promptForConfigKey(in io.Reader, out io.Writer, initialSetup bool) ([]byte, error) {
	scanner := bufio.NewScanner(in)
	read := func(prompt string) ([]byte, error) {
		if _, err := fmt.Fprint(out, prompt); err != nil {
			return nil, err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.ErrUnexpectedEOF
		}
		return bytes.TrimSpace(scanner.Bytes()), nil
	}

	key, err := read("Please enter the config password: ")
	if err != nil {
		return nil, err
	}
	if !initialSetup {
		return key, nil
	}
	if len(key) < minPasswordLength {
		return nil, fmt.Errorf("%w: minimum %d characters", errPasswordTooShort, minPasswordLength)
	}
	// scanner.Bytes is overwritten by the next Scan
	key = bytes.Clone(key)
	confirm, err := read("Please re-enter the password: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(key, confirm) {
		return nil, errPasswordMismatch
	}
	return key, nil
}

// EncryptConfigFile encrypts configuration data that is parsed in with a key
// and returns it as a byte array with an error
func EncryptConfigFile(configData, key []byte) ([]byte, error) {
	sessionDK, salt, err := makeNewSessionDK(key)
	if err != nil {
		return nil, err
	}
	c := &Config{
		sessionDK:  sessionDK,
		storedSalt: salt,
	}
	return c.encryptConfigData(configData)
}

// encryptConfigData encrypts json config data with the session key. The
// output is the confirmation string, the salt, the nonce and the AES-GCM
// sealed payload.
func (c *Config) encryptConfigData(configData []byte) ([]byte, error) {
	aead, err := newAEAD(c.sessionDK)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(EncryptConfirmString)+len(c.storedSalt)+len(nonce)+len(configData)+aead.Overhead())
	out = append(out, EncryptConfirmString...)
	out = append(out, c.storedSalt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, configData, []byte(EncryptConfirmString)), nil
}

// DecryptConfigFile decrypts configuration data with the supplied key and
// returns the un-encrypted data as a byte array with an error
func DecryptConfigFile(configData, key []byte) ([]byte, error) {
	plain, _, _, err := decryptConfigData(configData, key)
	return plain, err
}

// decryptConfigData decrypts the config and returns the derived session key
// and salt so a later save can reuse them without prompting
func decryptConfigData(configData, key []byte) (plain, sessionDK, salt []byte, err error) {
	if !ConfirmECS(configData) {
		return nil, nil, nil, errNoPrefix
	}
	configData = RemoveECS(configData)

	saltLength := len(SaltPrefix) + SaltRandomLength
	if len(configData) < saltLength || !bytes.HasPrefix(configData, []byte(SaltPrefix)) {
		return nil, nil, nil, errSaltMissing
	}
	salt = bytes.Clone(configData[:saltLength])
	configData = configData[saltLength:]

	sessionDK, err = getScryptDK(key, salt)
	if err != nil {
		return nil, nil, nil, err
	}
	aead, err := newAEAD(sessionDK)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(configData) < aead.NonceSize() {
		return nil, nil, nil, errCiphertextTooShort
	}
	nonce, sealed := configData[:aead.NonceSize()], configData[aead.NonceSize():]
	plain, err = aead.Open(nil, nonce, sealed, []byte(EncryptConfirmString))
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "unable to open encrypted config")
	}
	return plain, sessionDK, salt, nil
}

// ConfirmECS confirms that the encryption confirmation string is found
func ConfirmECS(file []byte) bool {
	return bytes.HasPrefix(file, []byte(EncryptConfirmString))
}

// RemoveECS removes encryption confirmation string
func RemoveECS(file []byte) []byte {
	return bytes.TrimPrefix(file, []byte(EncryptConfirmString))
}

func newAEAD(sessionDK []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(sessionDK)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func makeNewSessionDK(key []byte) (dk, storedSalt []byte, err error) {
	storedSalt, err = genRandomSalt()
	if err != nil {
		return nil, nil, err
	}
	dk, err = getScryptDK(key, storedSalt)
	if err != nil {
		return nil, nil, err
	}
	return dk, storedSalt, nil
}

func getScryptDK(key, salt []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("key is empty")
	}
	return scrypt.Key(key, salt, scryptN, scryptR, scryptP, keyLength)
}

func genRandomSalt() ([]byte, error) {
	salt := make([]byte, len(SaltPrefix)+SaltRandomLength)
	copy(salt, SaltPrefix)
	if _, err := io.ReadFull(rand.Reader, salt[len(SaltPrefix):]); err != nil {
		return nil, err
	}
	return salt, nil
}
