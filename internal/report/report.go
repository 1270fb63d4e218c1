package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	reportTitleConstant               = "# Code Audit Report"
	headerEntryTemplateConstant       = "- **%s:** %s\n"
	sectionHeadingTemplateConstant    = "## %s\n\n"
	subsectionHeadingTemplateConstant = "### %s\n\n"
	scannerTableHeadingConstant       = "## Scanner Availability\n\n"
	scannerTableHeaderConstant        = "| Scanner | Status | Detail |\n|---------|--------|--------|\n"
	scannerTableRowTemplateConstant   = "| %s | %s | %s |\n"
	referenceWithCommitTemplate       = "%s (%s)"
	headerModeLabelConstant           = "Mode"
	headerGeneratedLabelConstant      = "Generated"
	headerRunIdentifierLabelConstant  = "Run ID"
	headerReferenceLabelConstant      = "Reference"
	headerRequestedLabelConstant      = "Requested reference"
	headerHeadLabelConstant           = "HEAD"
	headerRestoredLabelConstant       = "Restores to"
	headerTruncatedLabelConstant      = "Change set"
	headerTruncatedValueConstant      = "truncated to fit the model input budget"
	workingTreeReferenceValueConstant = "working tree"
	headerTimestampLayoutConstant     = "2006-01-02 15:04:05 MST"
	tableCellPipeReplacementConstant  = "\\|"
	tableCellEmptyConstant            = "-"
)

// SectionKind identifies a top-level report section. Kinds render in declaration order.
type SectionKind int

// Report sections in rendering order.
const (
	SectionLinesOfCode SectionKind = iota
	SectionSummary
	SectionSecurityAudit
	SectionDependencyAudit
	SectionStaticAnalysis
	SectionOWASPFindings
	SectionSmartContractAudit
)

var sectionTitles = map[SectionKind]string{
	SectionLinesOfCode:        "Lines of Code",
	SectionSummary:            "Summary",
	SectionSecurityAudit:      "Security Audit",
	SectionDependencyAudit:    "Dependency Audit",
	SectionStaticAnalysis:     "Static Analysis",
	SectionOWASPFindings:      "OWASP Findings",
	SectionSmartContractAudit: "Smart-Contract Audit",
}

// Title returns the heading text of the section kind.
func (kind SectionKind) Title() string {
	return sectionTitles[kind]
}

// Section is one titled block of the report. Omitted sections render nothing, heading included.
type Section struct {
	Kind        SectionKind
	Title       string
	Outcome     Outcome
	Subsections []Section
	Omitted     bool
}

// ScannerStatus is one row of the scanner availability table.
type ScannerStatus struct {
	Scanner      string
	Availability string
	Detail       string
}

// Header carries the run metadata printed above the sections.
type Header struct {
	Mode               string
	GeneratedAt        time.Time
	RunIdentifier      string
	RequestedReference string
	Reference          string
	ReferenceCommit    string
	HeadCommit         string
	RestoreReference   string
	Truncated          bool
	Scanners           []ScannerStatus
}

// Report is an assembled audit document.
type Report struct {
	Header   Header
	Sections []Section
}

// New orders the sections by kind and drops omitted ones.
func New(header Header, sections []Section) Report {
	included := make([]Section, 0, len(sections))
	for _, section := range sections {
		if section.Omitted {
			continue
		}
		if len(section.Title) == 0 {
			section.Title = section.Kind.Title()
		}
		included = append(included, section)
	}
	sort.SliceStable(included, func(left int, right int) bool {
		return included[left].Kind < included[right].Kind
	})
	return Report{Header: header, Sections: included}
}

// HasSection reports whether a section of the kind is rendered.
func (report Report) HasSection(kind SectionKind) bool {
	for _, section := range report.Sections {
		if section.Kind == kind {
			return true
		}
	}
	return false
}

// Markdown renders the complete document.
func (report Report) Markdown() string {
	var builder strings.Builder
	builder.WriteString(reportTitleConstant + "\n\n")
	report.renderHeader(&builder)

	for _, section := range report.Sections {
		builder.WriteString("\n")
		fmt.Fprintf(&builder, sectionHeadingTemplateConstant, section.Title)
		renderSectionBody(&builder, section)
	}
	return builder.String()
}

func (report Report) renderHeader(builder *strings.Builder) {
	header := report.Header
	fmt.Fprintf(builder, headerEntryTemplateConstant, headerModeLabelConstant, header.Mode)
	fmt.Fprintf(builder, headerEntryTemplateConstant, headerGeneratedLabelConstant, header.GeneratedAt.Format(headerTimestampLayoutConstant))
	if len(header.RunIdentifier) > 0 {
		fmt.Fprintf(builder, headerEntryTemplateConstant, headerRunIdentifierLabelConstant, header.RunIdentifier)
	}
	if len(header.RequestedReference) > 0 && header.RequestedReference != header.Reference {
		fmt.Fprintf(builder, headerEntryTemplateConstant, headerRequestedLabelConstant, header.RequestedReference)
	}
	fmt.Fprintf(builder, headerEntryTemplateConstant, headerReferenceLabelConstant, withCommit(header.Reference, header.ReferenceCommit))
	if len(header.HeadCommit) > 0 {
		fmt.Fprintf(builder, headerEntryTemplateConstant, headerHeadLabelConstant, header.HeadCommit)
	}
	if len(header.RestoreReference) > 0 {
		fmt.Fprintf(builder, headerEntryTemplateConstant, headerRestoredLabelConstant, header.RestoreReference)
	}
	if header.Truncated {
		fmt.Fprintf(builder, headerEntryTemplateConstant, headerTruncatedLabelConstant, headerTruncatedValueConstant)
	}

	if len(header.Scanners) == 0 {
		return
	}
	builder.WriteString("\n")
	builder.WriteString(scannerTableHeadingConstant)
	builder.WriteString(scannerTableHeaderConstant)
	for _, scanner := range header.Scanners {
		fmt.Fprintf(builder, scannerTableRowTemplateConstant, tableCell(scanner.Scanner), tableCell(scanner.Availability), tableCell(scanner.Detail))
	}
}

func renderSectionBody(builder *strings.Builder, section Section) {
	if body := section.Outcome.Render(); len(body) > 0 {
		builder.WriteString(body)
		builder.WriteString("\n")
		if len(section.Subsections) > 0 {
			builder.WriteString("\n")
		}
	}
	for index, subsection := range section.Subsections {
		if subsection.Omitted {
			continue
		}
		if index > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(builder, subsectionHeadingTemplateConstant, subsection.Title)
		if body := subsection.Outcome.Render(); len(body) > 0 {
			builder.WriteString(body)
			builder.WriteString("\n")
		}
	}
}

func withCommit(reference string, commit string) string {
	if len(reference) == 0 {
		reference = workingTreeReferenceValueConstant
	}
	if len(commit) == 0 {
		return reference
	}
	return fmt.Sprintf(referenceWithCommitTemplate, reference, commit)
}

func tableCell(value string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	if len(trimmed) == 0 {
		return tableCellEmptyConstant
	}
	return strings.ReplaceAll(trimmed, "|", tableCellPipeReplacementConstant)
}
