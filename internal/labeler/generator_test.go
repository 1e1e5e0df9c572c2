package labeler_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jmunixusers/vmcfg/internal/labeler"
)

const (
	testPlaybookDocumentConstant = `---
- hosts: all
  roles:
    - role: common
      tags: always
    - role: cs101
      tags:
        - cs101
    - role: cs149
      tags:
        - cs149
    - role: cs159
      tags:
        - cs159
    - role: tooling
      tags:
        - cs101
        - cs261
`
)

func writePlaybook(testInstance *testing.T) string {
	playbookPath := filepath.Join(testInstance.TempDir(), "local.yml")
	require.NoError(testInstance, os.WriteFile(playbookPath, []byte(testPlaybookDocumentConstant), 0o600))
	return playbookPath
}

func TestLabelForTag(testInstance *testing.T) {
	require.Equal(testInstance, "cs149/159", labeler.LabelForTag("cs149"))
	require.Equal(testInstance, "cs149/159", labeler.LabelForTag("cs159"))
	require.Equal(testInstance, "cs101", labeler.LabelForTag("cs101"))
}

func TestBuildLabelGlobs(testInstance *testing.T) {
	generator := labeler.NewGenerator(zap.NewNop())

	labelGlobs, buildError := generator.BuildLabelGlobs(writePlaybook(testInstance))

	require.NoError(testInstance, buildError)
	require.Equal(testInstance, map[string][]string{
		"cs101":     {"roles/cs101/**", "roles/tooling/**"},
		"cs149/159": {"roles/cs149/**", "roles/cs159/**"},
		"cs261":     {"roles/tooling/**"},
	}, labelGlobs)
}

func TestBuildLabelGlobsSkipsScalarTags(testInstance *testing.T) {
	generator := labeler.NewGenerator(zap.NewNop())

	labelGlobs, buildError := generator.BuildLabelGlobs(writePlaybook(testInstance))

	require.NoError(testInstance, buildError)
	require.NotContains(testInstance, labelGlobs, "always")
	require.NotContains(testInstance, labelGlobs, "common")
}

func TestWriteConfig(testInstance *testing.T) {
	generator := labeler.NewGenerator(zap.NewNop())
	configPath := filepath.Join(testInstance.TempDir(), ".github", "labeler.yml")

	require.NoError(testInstance, generator.WriteConfig(writePlaybook(testInstance), configPath))

	configContent, readError := os.ReadFile(configPath)
	require.NoError(testInstance, readError)
	require.True(testInstance, len(configContent) > 4)
	require.Equal(testInstance, "---\n", string(configContent[:4]))

	decodedConfig := map[string][]string{}
	require.NoError(testInstance, yaml.Unmarshal(configContent, &decodedConfig))
	require.Equal(testInstance, []string{"roles/cs149/**", "roles/cs159/**"}, decodedConfig["cs149/159"])
}

func TestBuildLabelGlobsMissingPlaybook(testInstance *testing.T) {
	generator := labeler.NewGenerator(zap.NewNop())

	_, buildError := generator.BuildLabelGlobs(filepath.Join(testInstance.TempDir(), "absent.yml"))

	require.Error(testInstance, buildError)
}
