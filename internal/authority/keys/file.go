package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/shopauth/internal/filex"
)

// LoadOrCreate reads the PEM private key at path. When the file does not
// exist a new key of the given size is generated and written there with
// owner-only permissions, so restarts keep the same kid. An empty path
// yields nil and the caller gets an ephemeral key.
func LoadOrCreate(path string, bits int) (*rsa.PrivateKey, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		key, err := ParsePrivateKeyPEM(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	key, err := generateKey(bits)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	out := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if err := filex.WritePrivateFile(path, out); err != nil {
		return nil, err
	}
	return key, nil
}
