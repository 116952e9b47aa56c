package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/workledger/internal/domain"
)

func TestLoadEpicMappings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mappings:
  - customer: Acme
    epic: ACME-12
  - customer: " Globex "
    epic: GLX-3
`), 0o600))

	got, err := LoadEpicMappings(path)
	require.NoError(t, err)
	assert.Equal(t, []domain.EpicMapping{
		{Customer: "Acme", EpicKey: "ACME-12"},
		{Customer: "Globex", EpicKey: "GLX-3"},
	}, got)
}

func TestParseEpicMappings_Rejects(t *testing.T) {
	tests := map[string]string{
		"not yaml":     "mappings: [",
		"missing epic": "mappings:\n  - customer: Acme\n",
		"duplicate":    "mappings:\n  - {customer: Acme, epic: A-1}\n  - {customer: Acme, epic: A-2}\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEpicMappings([]byte(body))
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}
