package hashcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	architectureVariableNameConstant    = "ansible_architecture"
	manifestStructureTemplateConstant   = "%s: file does not meet expected structure: %v"
	variablesUnreadableTemplateConstant = "unable to read variables file %s: %w"
	variablesInvalidTemplateConstant    = "unable to parse variables file %s: %w"
	fieldMissingTemplateConstant        = "field %s not found"
	fieldNotMappingTemplateConstant     = "field %s is not a mapping"
	fallbackArchitectureKeyConstant     = "_"
	dottedKeySeparatorConstant          = "."
)

// architecturePattern matches the template placeholder Ansible substitutes
// with the machine architecture.
var architecturePattern = regexp.MustCompile(`\{\{\s*` + architectureVariableNameConstant + `\s*\}\}`)

// FileChecks names the dotted keys holding the hash and download URLs inside
// one Ansible variables file.
type FileChecks struct {
	HashKey string   `yaml:"hash" mapstructure:"hash"`
	URLKeys []string `yaml:"urls" mapstructure:"urls"`
}

// Manifest maps role variable files (relative to the repository root) to the
// keys that must be validated inside them.
type Manifest map[string]FileChecks

// DefaultManifest lists the variable files whose download hashes the project
// validates.
func DefaultManifest() Manifest {
	return Manifest{
		"roles/eclipse/vars/main.yml": {
			HashKey: "eclipse.hash",
			URLKeys: []string{"eclipse.url", "eclipse.url_backup"},
		},
	}
}

// LoadManifest reads a manifest from a YAML document.
func LoadManifest(manifestPath string) (Manifest, error) {
	manifestContent, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return nil, fmt.Errorf(variablesUnreadableTemplateConstant, manifestPath, readError)
	}

	var loadedManifest Manifest
	if unmarshalError := yaml.Unmarshal(manifestContent, &loadedManifest); unmarshalError != nil {
		return nil, fmt.Errorf(variablesInvalidTemplateConstant, manifestPath, unmarshalError)
	}

	return loadedManifest, nil
}

// Check is one URL whose content hash must match an expected value.
type Check struct {
	URL          string
	ExpectedHash string
	SourceFile   string
}

// BuildChecks expands the manifest against the variable files under rootDir
// into the concrete set of URL checks. Files that do not match the expected
// structure are reported as structure errors without stopping the expansion.
func BuildChecks(rootDirectory string, manifest Manifest) ([]Check, []error) {
	collectedChecks := []Check{}
	structureErrors := []error{}

	manifestFiles := make([]string, 0, len(manifest))
	for variablesFile := range manifest {
		manifestFiles = append(manifestFiles, variablesFile)
	}
	sort.Strings(manifestFiles)

	for _, variablesFile := range manifestFiles {
		fileChecks, expansionError := checksForFile(rootDirectory, variablesFile, manifest[variablesFile])
		if expansionError != nil {
			structureErrors = append(structureErrors, expansionError)
			continue
		}
		collectedChecks = append(collectedChecks, fileChecks...)
	}

	return collectedChecks, structureErrors
}

func checksForFile(rootDirectory string, variablesFile string, lookupKeys FileChecks) ([]Check, error) {
	variablesContent, readError := os.ReadFile(filepath.Join(rootDirectory, variablesFile))
	if readError != nil {
		return nil, fmt.Errorf(variablesUnreadableTemplateConstant, variablesFile, readError)
	}

	var variablesDocument map[string]any
	if unmarshalError := yaml.Unmarshal(variablesContent, &variablesDocument); unmarshalError != nil {
		return nil, fmt.Errorf(variablesInvalidTemplateConstant, variablesFile, unmarshalError)
	}

	hashValue, hashLookupError := lookupField(variablesDocument, lookupKeys.HashKey)
	if hashLookupError != nil {
		return nil, fmt.Errorf(manifestStructureTemplateConstant, variablesFile, hashLookupError)
	}

	// A scalar hash applies to every architecture; a mapping carries one hash
	// per architecture name.
	hashesByArchitecture := map[string]string{}
	switch typedHashValue := hashValue.(type) {
	case map[string]any:
		for architectureName, architectureHash := range typedHashValue {
			hashesByArchitecture[architectureName] = fmt.Sprint(architectureHash)
		}
	default:
		hashesByArchitecture[fallbackArchitectureKeyConstant] = fmt.Sprint(hashValue)
	}

	fileChecks := []Check{}
	for _, urlKey := range lookupKeys.URLKeys {
		urlValue, urlLookupError := lookupField(variablesDocument, urlKey)
		if urlLookupError != nil {
			return nil, fmt.Errorf(manifestStructureTemplateConstant, variablesFile, urlLookupError)
		}
		urlTemplate := fmt.Sprint(urlValue)

		for architectureName, expectedHash := range hashesByArchitecture {
			fileChecks = append(fileChecks, Check{
				URL:          ExpandArchitecture(urlTemplate, architectureName),
				ExpectedHash: expectedHash,
				SourceFile:   variablesFile,
			})
		}
	}

	sort.Slice(fileChecks, func(firstIndex int, secondIndex int) bool {
		return fileChecks[firstIndex].URL < fileChecks[secondIndex].URL
	})
	return dedupeChecks(fileChecks), nil
}

// ExpandArchitecture substitutes the architecture placeholder in a URL
// template. Templates without the placeholder pass through unchanged.
func ExpandArchitecture(urlTemplate string, architectureName string) string {
	return architecturePattern.ReplaceAllString(urlTemplate, architectureName)
}

// lookupField resolves a dot-separated key path inside nested YAML mappings.
func lookupField(variablesDocument map[string]any, dottedKey string) (any, error) {
	pathComponents := strings.Split(dottedKey, dottedKeySeparatorConstant)
	var currentValue any = variablesDocument

	for _, pathComponent := range pathComponents {
		currentMapping, isMapping := currentValue.(map[string]any)
		if !isMapping {
			return nil, fmt.Errorf(fieldNotMappingTemplateConstant, dottedKey)
		}
		nestedValue, keyPresent := currentMapping[pathComponent]
		if !keyPresent {
			return nil, fmt.Errorf(fieldMissingTemplateConstant, dottedKey)
		}
		currentValue = nestedValue
	}

	return currentValue, nil
}

func dedupeChecks(fileChecks []Check) []Check {
	seenChecks := map[Check]bool{}
	uniqueChecks := fileChecks[:0]
	for _, fileCheck := range fileChecks {
		if seenChecks[fileCheck] {
			continue
		}
		seenChecks[fileCheck] = true
		uniqueChecks = append(uniqueChecks, fileCheck)
	}
	return uniqueChecks
}
