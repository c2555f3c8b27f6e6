package storage

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	fileFormatVersion = 1
	saltSize          = 16
	nonceSize         = 24
	keySize           = 32
)

// ErrDecrypt is returned when the credentials file cannot be opened with the
// configured passphrase.
var ErrDecrypt = errors.New("credentials file: decryption failed")

type fileEnvelope struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt,omitempty"`
	Nonce   []byte `json:"nonce,omitempty"`
	Sealed  []byte `json:"sealed,omitempty"`
	Values  Values `json:"values,omitempty"`
}

// File stores credentials in a JSON file, sealed with secretbox when a
// passphrase is configured. Writes go through a temp file and rename.
type File struct {
	path       string
	passphrase []byte

	mu sync.Mutex
}

// NewFile returns a file store at path. An empty passphrase stores plaintext.
func NewFile(path, passphrase string) *File {
	return &File{path: path, passphrase: []byte(passphrase)}
}

func (f *File) Load(ctx context.Context) (Values, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *File) Set(ctx context.Context, key Key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

func (f *File) SetAll(ctx context.Context, values Values) error {
	if err := validValues(values); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(maps.Clone(values))
}

func (f *File) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	return nil
}

func (f *File) read() (Values, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Values{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}
	if env.Sealed == nil {
		if env.Values == nil {
			return Values{}, nil
		}
		return env.Values, nil
	}

	if len(f.passphrase) == 0 || len(env.Nonce) != nonceSize {
		return nil, ErrDecrypt
	}
	key, err := deriveKey(f.passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], env.Nonce)
	plain, ok := secretbox.Open(nil, env.Sealed, &nonce, key)
	if !ok {
		return nil, ErrDecrypt
	}

	values := Values{}
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, fmt.Errorf("decode sealed credentials: %w", err)
	}
	return values, nil
}

func (f *File) write(values Values) error {
	env := fileEnvelope{Version: fileFormatVersion}
	if len(f.passphrase) == 0 {
		env.Values = values
	} else {
		sealed, err := f.seal(values, &env)
		if err != nil {
			return err
		}
		env.Sealed = sealed
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode credentials file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}

func (f *File) seal(values Values, env *fileEnvelope) ([]byte, error) {
	plain, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}

	env.Salt = make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, env.Salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	env.Nonce = nonce[:]

	key, err := deriveKey(f.passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	return secretbox.Seal(nil, plain, &nonce, key), nil
}

func deriveKey(passphrase, salt []byte) (*[keySize]byte, error) {
	derived, err := scrypt.Key(passphrase, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive credentials key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], derived)
	return &key, nil
}
