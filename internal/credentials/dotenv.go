package credentials

import (
	"bufio"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// encKeyEnv names the environment variable holding the AES-256 key (as hex)
// used to decrypt "enc:" values in a .env file. Only the user-home .env is
// expected to carry encrypted values in practice, but both loaders accept
// the prefix.
const encKeyEnv = "BELLWETHER_ENV_KEY"

type dotenvSource map[string]string

func (d dotenvSource) lookup(name string) (string, bool) {
	v, ok := d[name]
	return v, ok
}

// loadDotenv reads a KEY=VALUE file, one assignment per line. Blank lines
// and lines starting with '#' are skipped. A value may be wrapped as
// enc:<hex> to be decrypted with the key in BELLWETHER_ENV_KEY; a value
// that fails to decrypt is dropped rather than returned garbled.
func loadDotenv(path string) (dotenvSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := dotenvSource{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if strings.HasPrefix(value, "enc:") {
			decoded, derr := decryptDotenvValue(strings.TrimPrefix(value, "enc:"))
			if derr != nil {
				continue
			}
			value = decoded
		}
		out[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decryptDotenvValue(hexCiphertext string) (string, error) {
	keyHex := os.Getenv(encKeyEnv)
	if keyHex == "" {
		return "", fmt.Errorf("credentials: %s not set, cannot decrypt", encKeyEnv)
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return "", fmt.Errorf("credentials: decode key: %w", err)
	}
	ciphertext, err := hex.DecodeString(hexCiphertext)
	if err != nil {
		return "", fmt.Errorf("credentials: decode value: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("credentials: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("credentials: new gcm: %w", err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return "", fmt.Errorf("credentials: ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("credentials: decrypt: %w", err)
	}
	return string(plain), nil
}
