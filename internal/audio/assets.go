package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// EncryptedExt is appended to asset names on disk.
const EncryptedExt = ".age"

var (
	// ErrInvalidAssetName is returned for names that are empty or leave the assets directory.
	ErrInvalidAssetName = errors.New("invalid asset name")
	// ErrNoIdentity is returned when the key file holds no identity.
	ErrNoIdentity = errors.New("no age identity found")
)

// AssetSource decrypts assets from a directory.
type AssetSource struct {
	dir        string
	identities []age.Identity
}

// OpenAssets reads the identities in identityFile and serves assets from dir.
func OpenAssets(dir, identityFile string) (*AssetSource, error) {
	f, err := os.Open(filepath.Clean(identityFile))
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identity file %s: %w", identityFile, err)
	}

	if len(identities) == 0 {
		return nil, ErrNoIdentity
	}

	return &AssetSource{
		dir:        dir,
		identities: identities,
	}, nil
}

// Asset returns the decrypted contents of the named asset.
func (s *AssetSource) Asset(name string) ([]byte, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}

	path := AssetPath(s.dir, name)

	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), s.identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", path, err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read decrypted %s: %w", path, err)
	}

	return plaintext, nil
}

// AssetPath returns where the encrypted asset name is stored in dir.
func AssetPath(dir, name string) string {
	return filepath.Join(dir, name+EncryptedExt)
}

// Encrypt writes plaintext encrypted to recipient into w.
func Encrypt(w io.Writer, plaintext io.Reader, recipient age.Recipient) error {
	writer, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("create encryptor: %w", err)
	}

	if _, err = io.Copy(writer, plaintext); err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("finalize encryption: %w", err)
	}

	return nil
}
