package awsx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProfiles(t *testing.T) {
	dir := t.TempDir()

	configFile := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(configFile, []byte(`
[default]
region = us-east-1

[profile staging]
region = eu-west-1

[profile prod]
region = eu-west-1
role_arn = arn:aws:iam::123456789012:role/operator
`), 0o600))

	credsFile := filepath.Join(dir, "credentials")
	require.NoError(t, os.WriteFile(credsFile, []byte(`
[default]
aws_access_key_id = AKIAEXAMPLE
aws_secret_access_key = secret

[sandbox]
aws_access_key_id = AKIAEXAMPLE2
aws_secret_access_key = secret2
`), 0o600))

	t.Setenv("AWS_CONFIG_FILE", configFile)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credsFile)

	profiles, err := ListProfiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "prod", "sandbox", "staging"}, profiles)
}

func TestListProfilesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "nope"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "nope2"))

	profiles, err := ListProfiles()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}
