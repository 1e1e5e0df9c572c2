package osrelease

import (
	"bufio"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultDescriptorPathConstant            = "/etc/os-release"
	versionCodenameKeyConstant               = "VERSION_CODENAME"
	commentPrefixConstant                    = "#"
	assignmentSeparatorConstant              = "="
	quoteCharactersConstant                  = `"'`
	descriptorUnreadableMessageConstant      = "unable to read OS descriptor file"
	missingAssignmentMessageConstant         = "descriptor entry has no assignment"
	codenameUndetectableMessageConstant      = "no valid release codename was detected"
	logFieldDescriptorPathConstant           = "descriptor_path"
	logFieldDescriptorLineConstant           = "line"
	assignmentSeparatorSplitSegmentsConstant = 2
)

// Detector reads a local OS descriptor file and extracts the release codename.
type Detector struct {
	logger         *zap.Logger
	descriptorPath string
}

// NewDetector constructs a Detector reading the provided descriptor path, defaulting to /etc/os-release.
func NewDetector(logger *zap.Logger, descriptorPath string) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	trimmedPath := strings.TrimSpace(descriptorPath)
	if len(trimmedPath) == 0 {
		trimmedPath = defaultDescriptorPathConstant
	}
	return &Detector{logger: logger, descriptorPath: trimmedPath}
}

// ReleaseName returns the detected release codename or an empty string when undetectable.
func (detector *Detector) ReleaseName() string {
	descriptorFile, openError := os.Open(detector.descriptorPath)
	if openError != nil {
		detector.logger.Warn(
			descriptorUnreadableMessageConstant,
			zap.String(logFieldDescriptorPathConstant, detector.descriptorPath),
			zap.Error(openError),
		)
		return ""
	}
	defer descriptorFile.Close()

	descriptorValues := detector.parseAssignments(descriptorFile)
	releaseName := strings.TrimSpace(descriptorValues[versionCodenameKeyConstant])
	if len(releaseName) == 0 {
		detector.logger.Warn(
			codenameUndetectableMessageConstant,
			zap.String(logFieldDescriptorPathConstant, detector.descriptorPath),
		)
	}

	return releaseName
}

// parseAssignments reads key=value lines, skipping comments and entries without assignments.
func (detector *Detector) parseAssignments(reader io.Reader) map[string]string {
	descriptorValues := map[string]string{}

	lineScanner := bufio.NewScanner(reader)
	for lineScanner.Scan() {
		descriptorLine := lineScanner.Text()
		if strings.HasPrefix(strings.TrimSpace(descriptorLine), commentPrefixConstant) {
			continue
		}
		if !strings.Contains(descriptorLine, assignmentSeparatorConstant) {
			if len(strings.TrimSpace(descriptorLine)) > 0 {
				detector.logger.Debug(
					missingAssignmentMessageConstant,
					zap.String(logFieldDescriptorLineConstant, descriptorLine),
				)
			}
			continue
		}

		assignmentSegments := strings.SplitN(descriptorLine, assignmentSeparatorConstant, assignmentSeparatorSplitSegmentsConstant)
		assignmentKey := strings.TrimSpace(assignmentSegments[0])
		assignmentValue := strings.Trim(strings.TrimSpace(assignmentSegments[1]), quoteCharactersConstant)
		descriptorValues[assignmentKey] = assignmentValue
	}

	return descriptorValues
}
