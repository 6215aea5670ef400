package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMissingKey is returned when the key store lacks the requested field.
var ErrMissingKey = errors.New("missing key in key store")

// LoadAPIKey reads field from the JSON key store at path.
func LoadAPIKey(path, field string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot read key store: %w", ErrMissingKey, err)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("key store %s is not valid JSON", path)
	}

	v := gjson.GetBytes(data, field)
	key := strings.TrimSpace(v.String())
	if !v.Exists() || key == "" {
		return "", fmt.Errorf("%w: no %q field found in %s, add \"%s\": \"sk-...\"", ErrMissingKey, field, path, field)
	}
	return key, nil
}
