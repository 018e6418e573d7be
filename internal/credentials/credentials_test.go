package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		key     string
		want    string
		wantErr error
	}{
		{
			name:    "reads key",
			content: "ALIYUN_KEY=sk-abc123\n",
			key:     "ALIYUN_KEY",
			want:    "sk-abc123",
		},
		{
			name:    "strips quotes and ignores comments",
			content: "# DashScope\nALIYUN_KEY=\"sk-quoted\"\nOTHER=1\n",
			key:     "ALIYUN_KEY",
			want:    "sk-quoted",
		},
		{
			name:    "missing key",
			content: "OPENROUTER_API_KEY=or-1\n",
			key:     "ALIYUN_KEY",
			wantErr: ErrMissingCredential,
		},
		{
			name:    "empty value",
			content: "ALIYUN_KEY=\n",
			key:     "ALIYUN_KEY",
			wantErr: ErrMissingCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, "")
			path := writeEnv(t, tt.content)

			got, err := Load(path, tt.key)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("ALIYUN_KEY", "")

	_, err := Load(filepath.Join(t.TempDir(), ".env"), "ALIYUN_KEY")
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadEnvironmentWins(t *testing.T) {
	t.Setenv("ALIYUN_KEY", "sk-from-env")
	path := writeEnv(t, "ALIYUN_KEY=sk-from-file\n")

	got, err := Load(path, "ALIYUN_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", got)

	// No file needed at all when the variable is exported.
	got, err = Load(filepath.Join(t.TempDir(), "missing.env"), "ALIYUN_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", got)
}

func TestRead(t *testing.T) {
	path := writeEnv(t, "ALIYUN_KEY=a\nOPENROUTER_API_KEY=b\nBLANK=\n")

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"aliyun_key": "a", "openrouter_api_key": "b"}, got)
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
