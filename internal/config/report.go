package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Report describes one scheduled report: what to query and who receives it.
type Report struct {
	Name         string   `yaml:"name"`
	Subject      string   `yaml:"subject"`
	FromName     string   `yaml:"from_name"`
	Organization string   `yaml:"organization"`
	Recipients   []string `yaml:"recipients"`

	QueryFile string `yaml:"query_file"`
	LogoFile  string `yaml:"logo_file"`

	// KeyColumn names the grouping column excluded from the summary.
	// Empty means the first column.
	KeyColumn  string `yaml:"key_column"`
	Aggregate  *bool  `yaml:"aggregate"`
	IncludeRaw bool   `yaml:"include_raw"`

	SummaryTitle string `yaml:"summary_title"`
	RawTitle     string `yaml:"raw_title"`
}

// DefaultReport returns the baseline report definition.
func DefaultReport() Report {
	aggregate := true
	return Report{
		Name:         "traditional-bands",
		Subject:      "Daily Traditional Bands Summary",
		FromName:     "Partners Dental Report Bot",
		Organization: "Partners Dental Solutions",
		QueryFile:    "sql_query/traditional_bands_shipDate_group.sql",
		LogoFile:     "logo.png",
		Aggregate:    &aggregate,
		SummaryTitle: "Location Total Summary",
		RawTitle:     "Results Grouped By Ship Date",
	}
}

// ShouldAggregate reports whether the summary is reduced to a single row.
func (r Report) ShouldAggregate() bool {
	return r.Aggregate == nil || *r.Aggregate
}

// LoadReport reads the YAML report definition at path and merges it over
// DefaultReport. Relative file paths are resolved against the directory
// holding the definition.
func LoadReport(path string) (Report, error) {
	rep := DefaultReport()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rep, &Error{Key: "REPORT_CONFIG", Message: fmt.Sprintf("file %q not found", path)}
		}
		return rep, fmt.Errorf("read report config %q: %w", path, err)
	}

	var fileRep Report
	if err := yaml.Unmarshal(data, &fileRep); err != nil {
		return rep, &Error{Key: "REPORT_CONFIG", Message: fmt.Sprintf("cannot parse %q: %v", path, err)}
	}

	rep = mergeReport(rep, fileRep)

	dir := filepath.Dir(path)
	rep.QueryFile = resolve(dir, rep.QueryFile)
	rep.LogoFile = resolve(dir, rep.LogoFile)

	if err := rep.Validate(); err != nil {
		return rep, err
	}
	return rep, nil
}

// Validate checks the definition is usable.
func (r Report) Validate() error {
	if r.QueryFile == "" {
		return &Error{Key: "query_file", Message: "is required"}
	}
	if len(r.Recipients) == 0 {
		return &Error{Key: "recipients", Message: "must list at least one address"}
	}
	for _, addr := range r.Recipients {
		if _, err := mail.ParseAddress(addr); err != nil {
			return &Error{Key: "recipients", Message: fmt.Sprintf("invalid address %q", addr)}
		}
	}
	return nil
}

func mergeReport(base, override Report) Report {
	out := base

	if override.Name != "" {
		out.Name = override.Name
	}
	if override.Subject != "" {
		out.Subject = override.Subject
	}
	if override.FromName != "" {
		out.FromName = override.FromName
	}
	if override.Organization != "" {
		out.Organization = override.Organization
	}
	if len(override.Recipients) > 0 {
		out.Recipients = append([]string{}, override.Recipients...)
	}
	if override.QueryFile != "" {
		out.QueryFile = override.QueryFile
	}
	if override.LogoFile != "" {
		out.LogoFile = override.LogoFile
	}
	if override.KeyColumn != "" {
		out.KeyColumn = override.KeyColumn
	}
	if override.Aggregate != nil {
		v := *override.Aggregate
		out.Aggregate = &v
	}
	if override.IncludeRaw {
		out.IncludeRaw = true
	}
	if override.SummaryTitle != "" {
		out.SummaryTitle = override.SummaryTitle
	}
	if override.RawTitle != "" {
		out.RawTitle = override.RawTitle
	}

	return out
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
