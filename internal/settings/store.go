package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"go.uber.org/zap"
)

const (
	applicationDirectoryNameConstant     = "vmcfg"
	settingsFileNameConstant             = "settings.json"
	temporaryFileSuffixConstant          = ".tmp"
	settingsDirectoryPermissionsConstant = 0o755
	settingsFilePermissionsConstant      = 0o600
	settingsIndentConstant               = "    "
	settingsMissingMessageConstant       = "settings document not present, using defaults"
	settingsCorruptMessageConstant       = "settings document invalid, using defaults"
	settingsLoadedMessageConstant        = "settings loaded"
	settingsWrittenMessageConstant       = "settings written"
	directoryCreateErrorTemplateConstant = "unable to create settings directory: %w"
	settingsEncodeErrorTemplateConstant  = "unable to encode settings: %w"
	settingsWriteErrorTemplateConstant   = "unable to write settings: %w"
	settingsReplaceErrorTemplateConstant = "unable to replace settings document: %w"
	logFieldSettingsPathConstant         = "settings_path"
	logFieldSettingsGitBranchConstant    = "git_branch"
	logFieldSettingsGitURLConstant       = "git_url"
	logFieldSettingsRolesThisRunConstant = "roles_this_run"
)

// Store reads and writes the persisted settings document.
type Store struct {
	logger       *zap.Logger
	documentPath string
}

// NewStore constructs a Store persisting to the provided path, defaulting to
// the per-user configuration directory.
func NewStore(logger *zap.Logger, documentPath string) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	trimmedPath := strings.TrimSpace(documentPath)
	if len(trimmedPath) == 0 {
		trimmedPath = filepath.Join(xdg.ConfigHome, applicationDirectoryNameConstant, settingsFileNameConstant)
	}
	return &Store{logger: logger, documentPath: trimmedPath}
}

// DocumentPath reports where the settings document is persisted.
func (store *Store) DocumentPath() string {
	return store.documentPath
}

// Load reads the persisted settings. Missing or corrupt documents fall back to
// defaults and are never fatal.
func (store *Store) Load() Settings {
	loadedSettings := Default()

	documentBytes, readError := os.ReadFile(store.documentPath)
	if readError != nil {
		if !errors.Is(readError, os.ErrNotExist) {
			store.logger.Warn(
				settingsCorruptMessageConstant,
				zap.String(logFieldSettingsPathConstant, store.documentPath),
				zap.Error(readError),
			)
		} else {
			store.logger.Info(
				settingsMissingMessageConstant,
				zap.String(logFieldSettingsPathConstant, store.documentPath),
			)
		}
		return loadedSettings
	}

	if unmarshalError := json.Unmarshal(documentBytes, &loadedSettings); unmarshalError != nil {
		store.logger.Warn(
			settingsCorruptMessageConstant,
			zap.String(logFieldSettingsPathConstant, store.documentPath),
			zap.Error(unmarshalError),
		)
		return Default()
	}

	loadedSettings.Normalize()

	store.logger.Info(
		settingsLoadedMessageConstant,
		zap.String(logFieldSettingsPathConstant, store.documentPath),
		zap.String(logFieldSettingsGitBranchConstant, loadedSettings.GitBranch),
		zap.String(logFieldSettingsGitURLConstant, loadedSettings.GitURL),
		zap.Strings(logFieldSettingsRolesThisRunConstant, loadedSettings.RolesThisRun),
	)

	return loadedSettings
}

// Save folds the role selections and writes the settings document atomically.
func (store *Store) Save(persistedSettings Settings) error {
	persistedSettings.foldRolesForPersistence()

	documentDirectory := filepath.Dir(store.documentPath)
	if directoryError := os.MkdirAll(documentDirectory, settingsDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(directoryCreateErrorTemplateConstant, directoryError)
	}

	documentBytes, marshalError := json.MarshalIndent(persistedSettings, "", settingsIndentConstant)
	if marshalError != nil {
		return fmt.Errorf(settingsEncodeErrorTemplateConstant, marshalError)
	}

	temporaryPath := store.documentPath + temporaryFileSuffixConstant
	if writeError := os.WriteFile(temporaryPath, documentBytes, settingsFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(settingsWriteErrorTemplateConstant, writeError)
	}

	if renameError := os.Rename(temporaryPath, store.documentPath); renameError != nil {
		return fmt.Errorf(settingsReplaceErrorTemplateConstant, renameError)
	}

	store.logger.Info(
		settingsWrittenMessageConstant,
		zap.String(logFieldSettingsPathConstant, store.documentPath),
		zap.Strings(logFieldSettingsRolesThisRunConstant, persistedSettings.RolesThisRun),
	)

	return nil
}
