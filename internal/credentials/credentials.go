// Package credentials reads API keys from a dotenv-style file.
//
// The file holds KEY=value lines (comments and quoting as understood by
// viper's "env" format). A variable of the same name in the process
// environment takes precedence, so the file is optional when the key is
// exported.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFile is the credential file looked up in the working directory.
const DefaultFile = ".env"

// ErrMissingCredential means the key is neither exported nor present with a
// non-empty value in the credential file.
var ErrMissingCredential = errors.New("missing credential")

// Load returns the value of key.
func Load(path, key string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, nil
	}

	values, err := Read(path)
	if err != nil {
		return "", err
	}

	v := values[strings.ToLower(key)]
	if v == "" {
		return "", fmt.Errorf("%w: %s not set in %s", ErrMissingCredential, key, path)
	}
	return v, nil
}

// Read parses the whole credential file. Keys are lower-cased.
func Read(path string) (map[string]string, error) {
	if path == "" {
		path = DefaultFile
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: credential file %s not found", ErrMissingCredential, path)
		}
		return nil, fmt.Errorf("reading credential file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing credential file %s: %w", path, err)
	}

	values := make(map[string]string)
	for _, k := range v.AllKeys() {
		if s := strings.TrimSpace(v.GetString(k)); s != "" {
			values[k] = s
		}
	}
	return values, nil
}
