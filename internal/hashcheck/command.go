package hashcheck

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	commandUseConstant              = "hashlint"
	commandShortDescriptionConstant = "Validate installer download hashes"
	commandLongDescriptionConstant  = "hashlint downloads every installer URL declared in role variable files and verifies its SHA-1 hash against the declared value."

	flagRootNameConstant         = "root"
	flagRootUsageConstant        = "Repository root containing the role variable files."
	flagManifestNameConstant     = "manifest"
	flagManifestUsageConstant    = "Optional YAML manifest overriding the built-in file list."
	flagCachePathNameConstant    = "cache-path"
	flagCachePathUsageConstant   = "Override the validator cache location."
	flagParallelismNameConstant  = "parallelism"
	flagParallelismUsageConstant = "Maximum concurrent downloads."

	defaultRootConstant = "."

	configurationParallelismKeyConstant = "parallelism"

	checkFailureTemplateConstant    = "%v\n"
	checkValidatedTemplateConstant  = "%s: validated %s from %s\n"
	lintSummaryTemplateConstant     = "%d of %d checks failed"
	cacheLoadFailedMessageConstant  = "unable to load validator cache, starting empty"
	cacheWriteFailedMessageConstant = "unable to write validator cache"
)

// Configuration captures hashlint options read from the config file.
type Configuration struct {
	Parallelism int `mapstructure:"parallelism"`
}

// DefaultConfiguration returns the hashlint defaults.
func DefaultConfiguration() Configuration {
	return Configuration{Parallelism: defaultParallelismConstant}
}

// DefaultConfigurationValues exposes the hashlint defaults for the
// configuration loader keyed beneath rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		rootKey + "." + configurationParallelismKeyConstant: defaults.Parallelism,
	}
}

// CommandBuilder assembles the Cobra command validating installer hashes.
type CommandBuilder struct {
	LoggerProvider        func() *zap.Logger
	ConfigurationProvider func() Configuration
}

// Build constructs the hashlint command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(flagRootNameConstant, defaultRootConstant, flagRootUsageConstant)
	command.Flags().String(flagManifestNameConstant, "", flagManifestUsageConstant)
	command.Flags().String(flagCachePathNameConstant, DefaultCachePath(), flagCachePathUsageConstant)
	command.Flags().Int(flagParallelismNameConstant, 0, flagParallelismUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()

	manifest, manifestError := builder.resolveManifest(command)
	if manifestError != nil {
		return manifestError
	}

	rootValue, _ := command.Flags().GetString(flagRootNameConstant)
	collectedChecks, structureErrors := BuildChecks(rootValue, manifest)
	for _, structureError := range structureErrors {
		fmt.Fprintf(command.ErrOrStderr(), checkFailureTemplateConstant, structureError)
	}

	cachePathValue, _ := command.Flags().GetString(flagCachePathNameConstant)
	artifactCache, cacheLoadError := LoadCache(cachePathValue)
	if cacheLoadError != nil {
		logger.Warn(cacheLoadFailedMessageConstant, zap.Error(cacheLoadError))
		artifactCache = NewCache()
	}

	checker := NewChecker(logger, artifactCache, CheckerOptions{Parallelism: builder.resolveParallelism(command)})
	results := checker.RunChecks(command.Context(), collectedChecks)

	for _, checkResult := range results {
		if checkResult.Valid {
			fmt.Fprintf(
				command.OutOrStdout(),
				checkValidatedTemplateConstant,
				checkResult.Check.SourceFile, checkResult.ActualHash, checkResult.Check.URL,
			)
			continue
		}
		fmt.Fprintf(command.ErrOrStderr(), checkFailureTemplateConstant, checkResult.Failure)
	}

	if cacheWriteError := artifactCache.SaveCache(cachePathValue); cacheWriteError != nil {
		logger.Warn(cacheWriteFailedMessageConstant, zap.Error(cacheWriteError))
	}

	failureCount := CountFailures(results) + len(structureErrors)
	if failureCount > 0 {
		return fmt.Errorf(lintSummaryTemplateConstant, failureCount, len(results)+len(structureErrors))
	}

	return nil
}

func (builder *CommandBuilder) resolveManifest(command *cobra.Command) (Manifest, error) {
	manifestPathValue, _ := command.Flags().GetString(flagManifestNameConstant)
	if len(manifestPathValue) == 0 {
		return DefaultManifest(), nil
	}
	return LoadManifest(manifestPathValue)
}

func (builder *CommandBuilder) resolveParallelism(command *cobra.Command) int {
	parallelismValue, _ := command.Flags().GetInt(flagParallelismNameConstant)
	if parallelismValue > 0 {
		return parallelismValue
	}
	if builder.ConfigurationProvider != nil {
		return builder.ConfigurationProvider().Parallelism
	}
	return 0
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
