package labeler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPlaybookPath is the playbook whose roles drive the labels.
	DefaultPlaybookPath = "local.yml"
	// DefaultConfigPath is where the generated labeler configuration lands.
	DefaultConfigPath = ".github/labeler.yml"

	roleGlobTemplateConstant        = "roles/%s/**"
	documentStartConstant           = "---\n"
	configIndentConstant            = 2
	configDirectoryPermissionsValue = 0o755
	configFilePermissionsValue      = 0o644
	playbookUnreadableTemplateValue = "unable to read playbook %s: %w"
	playbookInvalidTemplateValue    = "unable to parse playbook %s: %w"
	playbookEmptyTemplateValue      = "playbook %s contains no plays"
	configWriteTemplateValue        = "unable to write labeler config %s: %w"
	configGeneratedMessageConstant  = "labeler configuration generated"
	logFieldLabelsConstant          = "labels"
	logFieldConfigPathConstant      = "config_path"
)

// specialLabelMapping folds tags that share a PR label. The CS 149 and CS 159
// roles are maintained together and share one label.
var specialLabelMapping = map[string]string{
	"cs149": "cs149/159",
	"cs159": "cs149/159",
}

// playbookPlay is the subset of an Ansible play the generator reads.
type playbookPlay struct {
	Roles []playbookRole `yaml:"roles"`
}

// playbookRole is one roles entry; Tags stays untyped because the playbook
// mixes list tags with scalar tags, and only list tags produce labels.
type playbookRole struct {
	Role string `yaml:"role"`
	Tags any    `yaml:"tags"`
}

// Generator derives the GitHub labeler configuration from the playbook.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator constructs a Generator.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// LabelForTag maps a role tag to its PR label.
func LabelForTag(roleTag string) string {
	if specialLabel, isSpecial := specialLabelMapping[roleTag]; isSpecial {
		return specialLabel
	}
	return roleTag
}

// BuildLabelGlobs parses the playbook and groups role path globs by label.
func (generator *Generator) BuildLabelGlobs(playbookPath string) (map[string][]string, error) {
	playbookContent, readError := os.ReadFile(playbookPath)
	if readError != nil {
		return nil, fmt.Errorf(playbookUnreadableTemplateValue, playbookPath, readError)
	}

	var playbookPlays []playbookPlay
	if unmarshalError := yaml.Unmarshal(playbookContent, &playbookPlays); unmarshalError != nil {
		return nil, fmt.Errorf(playbookInvalidTemplateValue, playbookPath, unmarshalError)
	}
	if len(playbookPlays) == 0 {
		return nil, fmt.Errorf(playbookEmptyTemplateValue, playbookPath)
	}

	labelGlobs := map[string][]string{}
	for _, playbookEntry := range playbookPlays[0].Roles {
		listedTags, tagsAreList := playbookEntry.Tags.([]any)
		if !tagsAreList {
			continue
		}

		pathGlob := fmt.Sprintf(roleGlobTemplateConstant, playbookEntry.Role)
		for _, listedTag := range listedTags {
			label := LabelForTag(fmt.Sprint(listedTag))
			labelGlobs[label] = append(labelGlobs[label], pathGlob)
		}
	}

	return labelGlobs, nil
}

// WriteConfig generates the labeler configuration file from the playbook.
func (generator *Generator) WriteConfig(playbookPath string, configPath string) error {
	labelGlobs, buildError := generator.BuildLabelGlobs(playbookPath)
	if buildError != nil {
		return buildError
	}

	encodedConfig, encodeError := EncodeConfig(labelGlobs)
	if encodeError != nil {
		return fmt.Errorf(configWriteTemplateValue, configPath, encodeError)
	}

	if directoryError := os.MkdirAll(filepath.Dir(configPath), configDirectoryPermissionsValue); directoryError != nil {
		return fmt.Errorf(configWriteTemplateValue, configPath, directoryError)
	}
	if writeError := os.WriteFile(configPath, encodedConfig, configFilePermissionsValue); writeError != nil {
		return fmt.Errorf(configWriteTemplateValue, configPath, writeError)
	}

	labelNames := make([]string, 0, len(labelGlobs))
	for labelName := range labelGlobs {
		labelNames = append(labelNames, labelName)
	}
	generator.logger.Info(
		configGeneratedMessageConstant,
		zap.Strings(logFieldLabelsConstant, labelNames),
		zap.String(logFieldConfigPathConstant, configPath),
	)

	return nil
}

// EncodeConfig renders the label mapping as a YAML document with an explicit
// document start. Mapping keys are emitted sorted.
func EncodeConfig(labelGlobs map[string][]string) ([]byte, error) {
	var configBuffer bytes.Buffer
	configBuffer.WriteString(documentStartConstant)

	yamlEncoder := yaml.NewEncoder(&configBuffer)
	yamlEncoder.SetIndent(configIndentConstant)
	if encodeError := yamlEncoder.Encode(labelGlobs); encodeError != nil {
		return nil, encodeError
	}
	if closeError := yamlEncoder.Close(); closeError != nil {
		return nil, closeError
	}

	return configBuffer.Bytes(), nil
}
