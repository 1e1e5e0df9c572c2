package ansiblelint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	modeKeySuffixConstant           = "mode"
	taskNameKeyConstant             = "name"
	unnamedTaskPlaceholderConstant  = "(unnamed task)"
	tasksDirectoryNameConstant      = "tasks"
	handlersDirectoryNameConstant   = "handlers"
	findingMessageTemplateConstant  = "the value for %s should be a string"
	taskFileUnreadableTemplateValue = "unable to read task file %s: %w"
	taskFileInvalidTemplateValue    = "unable to parse task file %s: %w"
	taskFilesLintedMessageConstant  = "task files linted"
	logFieldFileCountConstant       = "file_count"
	logFieldFindingCountConstant    = "finding_count"
)

// yamlExtensions lists the suffixes treated as task files during tree walks.
var yamlExtensions = []string{".yml", ".yaml"}

// nestedTaskListKeys are task keys whose values contain further task lists.
var nestedTaskListKeys = []string{"block", "rescue", "always"}

// Finding is one mode-like key holding a non-string value.
type Finding struct {
	File     string
	TaskName string
	Key      string
	Message  string
}

// Linter enforces that file and directory modes in task files are strings.
// YAML happily parses bare 0644 as an integer, which Ansible then
// reinterprets, so modes must always be quoted.
type Linter struct {
	logger *zap.Logger
}

// NewLinter constructs a Linter.
func NewLinter(logger *zap.Logger) *Linter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Linter{logger: logger}
}

// LintFile checks every task in one task file.
func (linter *Linter) LintFile(taskFilePath string) ([]Finding, error) {
	taskFileContent, readError := os.ReadFile(taskFilePath)
	if readError != nil {
		return nil, fmt.Errorf(taskFileUnreadableTemplateValue, taskFilePath, readError)
	}

	var taskEntries []map[string]any
	if unmarshalError := yaml.Unmarshal(taskFileContent, &taskEntries); unmarshalError != nil {
		return nil, fmt.Errorf(taskFileInvalidTemplateValue, taskFilePath, unmarshalError)
	}

	findings := []Finding{}
	for _, taskEntry := range taskEntries {
		findings = append(findings, lintTask(taskFilePath, taskEntry)...)
	}
	return findings, nil
}

// LintTree lints every task and handler file under the provided root.
func (linter *Linter) LintTree(rootDirectory string) ([]Finding, error) {
	taskFilePaths := []string{}
	walkError := filepath.WalkDir(rootDirectory, func(walkedPath string, directoryEntry fs.DirEntry, walkedError error) error {
		if walkedError != nil {
			return walkedError
		}
		if directoryEntry.IsDir() {
			return nil
		}
		if !isTaskFile(walkedPath) {
			return nil
		}
		taskFilePaths = append(taskFilePaths, walkedPath)
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}
	sort.Strings(taskFilePaths)

	allFindings := []Finding{}
	for _, taskFilePath := range taskFilePaths {
		fileFindings, lintError := linter.LintFile(taskFilePath)
		if lintError != nil {
			return nil, lintError
		}
		allFindings = append(allFindings, fileFindings...)
	}

	linter.logger.Info(
		taskFilesLintedMessageConstant,
		zap.Int(logFieldFileCountConstant, len(taskFilePaths)),
		zap.Int(logFieldFindingCountConstant, len(allFindings)),
	)

	return allFindings, nil
}

// lintTask checks the action arguments of one task and recurses into nested
// task lists. Tasks without any mapping-valued key carry no action and are
// skipped.
func lintTask(taskFilePath string, taskEntry map[string]any) []Finding {
	taskName := unnamedTaskPlaceholderConstant
	if namedValue, hasName := taskEntry[taskNameKeyConstant].(string); hasName {
		taskName = namedValue
	}

	findings := []Finding{}
	for taskKey, taskValue := range taskEntry {
		if isNestedTaskListKey(taskKey) {
			findings = append(findings, lintNestedTasks(taskFilePath, taskValue)...)
			continue
		}

		actionArguments, isActionMapping := taskValue.(map[string]any)
		if !isActionMapping {
			continue
		}

		for argumentKey, argumentValue := range actionArguments {
			if !strings.HasSuffix(argumentKey, modeKeySuffixConstant) {
				continue
			}
			if _, isString := argumentValue.(string); isString {
				continue
			}
			findings = append(findings, Finding{
				File:     taskFilePath,
				TaskName: taskName,
				Key:      argumentKey,
				Message:  fmt.Sprintf(findingMessageTemplateConstant, argumentKey),
			})
		}
	}

	sort.Slice(findings, func(firstIndex int, secondIndex int) bool {
		return findings[firstIndex].Key < findings[secondIndex].Key
	})
	return findings
}

func lintNestedTasks(taskFilePath string, nestedValue any) []Finding {
	nestedEntries, isList := nestedValue.([]any)
	if !isList {
		return nil
	}

	findings := []Finding{}
	for _, nestedEntry := range nestedEntries {
		nestedTask, isMapping := nestedEntry.(map[string]any)
		if !isMapping {
			continue
		}
		findings = append(findings, lintTask(taskFilePath, nestedTask)...)
	}
	return findings
}

func isNestedTaskListKey(taskKey string) bool {
	for _, nestedKey := range nestedTaskListKeys {
		if taskKey == nestedKey {
			return true
		}
	}
	return false
}

func isTaskFile(candidatePath string) bool {
	extensionMatches := false
	for _, yamlExtension := range yamlExtensions {
		if strings.HasSuffix(candidatePath, yamlExtension) {
			extensionMatches = true
			break
		}
	}
	if !extensionMatches {
		return false
	}

	parentDirectory := filepath.Base(filepath.Dir(candidatePath))
	return parentDirectory == tasksDirectoryNameConstant || parentDirectory == handlersDirectoryNameConstant
}
