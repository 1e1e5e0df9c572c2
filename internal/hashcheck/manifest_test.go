package hashcheck_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmunixusers/vmcfg/internal/hashcheck"
)

const (
	testVariablesRelativePathConstant = "roles/finch/vars/main.yml"
	testCaseScalarHashConstant        = "scalar_hash_applies_to_single_url"
	testCasePerArchHashConstant       = "architecture_hashes_expand_template"
	testCaseMissingFieldConstant      = "missing_field_is_structure_error"
	testCaseScalarParentConstant      = "scalar_parent_is_structure_error"

	testScalarVariablesDocumentConstant = `---
finch:
    hash: abc123
    url: https://downloads.example.org/finch.tar.gz
`

	testPerArchVariablesDocumentConstant = `---
finch:
    hash:
        x86_64: hash-amd64
        aarch64: hash-arm64
    url: https://downloads.example.org/{{ ansible_architecture }}/finch.tar.gz
`
)

func writeVariablesFile(testInstance *testing.T, variablesDocument string) string {
	rootDirectory := testInstance.TempDir()
	variablesPath := filepath.Join(rootDirectory, testVariablesRelativePathConstant)
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(variablesPath), 0o755))
	require.NoError(testInstance, os.WriteFile(variablesPath, []byte(variablesDocument), 0o600))
	return rootDirectory
}

func TestExpandArchitecture(testInstance *testing.T) {
	require.Equal(
		testInstance,
		"https://downloads.example.org/x86_64/finch.tar.gz",
		hashcheck.ExpandArchitecture("https://downloads.example.org/{{ ansible_architecture }}/finch.tar.gz", "x86_64"),
	)
	require.Equal(
		testInstance,
		"https://downloads.example.org/x86_64/finch.tar.gz",
		hashcheck.ExpandArchitecture("https://downloads.example.org/{{ansible_architecture}}/finch.tar.gz", "x86_64"),
	)
	require.Equal(
		testInstance,
		"https://downloads.example.org/finch.tar.gz",
		hashcheck.ExpandArchitecture("https://downloads.example.org/finch.tar.gz", "x86_64"),
	)
}

func TestBuildChecks(testInstance *testing.T) {
	testInstance.Run(testCaseScalarHashConstant, func(testInstance *testing.T) {
		rootDirectory := writeVariablesFile(testInstance, testScalarVariablesDocumentConstant)
		manifest := hashcheck.Manifest{
			testVariablesRelativePathConstant: {HashKey: "finch.hash", URLKeys: []string{"finch.url"}},
		}

		collectedChecks, structureErrors := hashcheck.BuildChecks(rootDirectory, manifest)

		require.Empty(testInstance, structureErrors)
		require.Equal(testInstance, []hashcheck.Check{
			{
				URL:          "https://downloads.example.org/finch.tar.gz",
				ExpectedHash: "abc123",
				SourceFile:   testVariablesRelativePathConstant,
			},
		}, collectedChecks)
	})

	testInstance.Run(testCasePerArchHashConstant, func(testInstance *testing.T) {
		rootDirectory := writeVariablesFile(testInstance, testPerArchVariablesDocumentConstant)
		manifest := hashcheck.Manifest{
			testVariablesRelativePathConstant: {HashKey: "finch.hash", URLKeys: []string{"finch.url"}},
		}

		collectedChecks, structureErrors := hashcheck.BuildChecks(rootDirectory, manifest)

		require.Empty(testInstance, structureErrors)
		require.ElementsMatch(testInstance, []hashcheck.Check{
			{
				URL:          "https://downloads.example.org/x86_64/finch.tar.gz",
				ExpectedHash: "hash-amd64",
				SourceFile:   testVariablesRelativePathConstant,
			},
			{
				URL:          "https://downloads.example.org/aarch64/finch.tar.gz",
				ExpectedHash: "hash-arm64",
				SourceFile:   testVariablesRelativePathConstant,
			},
		}, collectedChecks)
	})

	testInstance.Run(testCaseMissingFieldConstant, func(testInstance *testing.T) {
		rootDirectory := writeVariablesFile(testInstance, testScalarVariablesDocumentConstant)
		manifest := hashcheck.Manifest{
			testVariablesRelativePathConstant: {HashKey: "finch.sha", URLKeys: []string{"finch.url"}},
		}

		collectedChecks, structureErrors := hashcheck.BuildChecks(rootDirectory, manifest)

		require.Empty(testInstance, collectedChecks)
		require.Len(testInstance, structureErrors, 1)
	})

	testInstance.Run(testCaseScalarParentConstant, func(testInstance *testing.T) {
		rootDirectory := writeVariablesFile(testInstance, testScalarVariablesDocumentConstant)
		manifest := hashcheck.Manifest{
			testVariablesRelativePathConstant: {HashKey: "finch.hash.x86_64", URLKeys: []string{"finch.url"}},
		}

		collectedChecks, structureErrors := hashcheck.BuildChecks(rootDirectory, manifest)

		require.Empty(testInstance, collectedChecks)
		require.Len(testInstance, structureErrors, 1)
	})
}

func TestDefaultManifestNamesEclipseVariables(testInstance *testing.T) {
	manifest := hashcheck.DefaultManifest()

	eclipseChecks, eclipsePresent := manifest["roles/eclipse/vars/main.yml"]
	require.True(testInstance, eclipsePresent)
	require.Equal(testInstance, "eclipse.hash", eclipseChecks.HashKey)
	require.Equal(testInstance, []string{"eclipse.url", "eclipse.url_backup"}, eclipseChecks.URLKeys)
}
