package report

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	fileNameTimestampLayoutConstant = "2006-01-02_15-04-05"
	fileNameTemplateConstant        = "%s_%s.md"
	collisionFileNameTemplate       = "%s_%s_%s.md"
	defaultFilePrefixConstant       = "audit_report"
	collisionSuffixLengthConstant   = 8
	outputDirectoryPermissions      = 0o755
	reportFilePermissions           = 0o644
	createDirectoryErrorTemplate    = "create report directory %s: %w"
	writeReportErrorTemplate        = "write report %s: %w"
)

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// IdentifierGenerator produces run identifiers.
type IdentifierGenerator func() string

// NewRunIdentifier returns a random UUID string.
func NewRunIdentifier() string {
	return uuid.NewString()
}

// Writer persists assembled reports as Markdown files.
type Writer struct {
	outputDirectory string
	filePrefix      string
}

// NewWriter constructs a Writer targeting outputDirectory. An empty prefix selects "audit_report".
func NewWriter(outputDirectory string, filePrefix string) *Writer {
	trimmedPrefix := strings.TrimSpace(filePrefix)
	if len(trimmedPrefix) == 0 {
		trimmedPrefix = defaultFilePrefixConstant
	}
	return &Writer{outputDirectory: outputDirectory, filePrefix: trimmedPrefix}
}

// FileName returns the report file name for the generation time.
func (writer *Writer) FileName(generatedAt time.Time) string {
	return fmt.Sprintf(fileNameTemplateConstant, writer.filePrefix, generatedAt.Format(fileNameTimestampLayoutConstant))
}

// Write stores the report and returns its path. The output directory is created when missing,
// and an existing file is never overwritten.
func (writer *Writer) Write(report Report) (string, error) {
	if mkdirError := os.MkdirAll(writer.outputDirectory, outputDirectoryPermissions); mkdirError != nil {
		return "", fmt.Errorf(createDirectoryErrorTemplate, writer.outputDirectory, mkdirError)
	}

	contents := []byte(report.Markdown())
	reportPath := filepath.Join(writer.outputDirectory, writer.FileName(report.Header.GeneratedAt))
	writeError := writeExclusive(reportPath, contents)
	if errors.Is(writeError, fs.ErrExist) {
		reportPath = filepath.Join(writer.outputDirectory, writer.collisionFileName(report.Header))
		writeError = writeExclusive(reportPath, contents)
	}
	if writeError != nil {
		return "", fmt.Errorf(writeReportErrorTemplate, reportPath, writeError)
	}
	return reportPath, nil
}

func (writer *Writer) collisionFileName(header Header) string {
	suffix := strings.ReplaceAll(header.RunIdentifier, "-", "")
	if len(suffix) == 0 {
		suffix = strings.ReplaceAll(NewRunIdentifier(), "-", "")
	}
	if len(suffix) > collisionSuffixLengthConstant {
		suffix = suffix[:collisionSuffixLengthConstant]
	}
	return fmt.Sprintf(collisionFileNameTemplate, writer.filePrefix, header.GeneratedAt.Format(fileNameTimestampLayoutConstant), suffix)
}

func writeExclusive(path string, contents []byte) error {
	file, openError := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, reportFilePermissions)
	if openError != nil {
		return openError
	}
	return completeWrite(path, file, contents)
}

// completeWrite removes the partially written file when writing or closing fails.
func completeWrite(path string, file io.WriteCloser, contents []byte) error {
	if _, writeError := file.Write(contents); writeError != nil {
		file.Close()
		os.Remove(path)
		return writeError
	}
	if closeError := file.Close(); closeError != nil {
		os.Remove(path)
		return closeError
	}
	return nil
}
