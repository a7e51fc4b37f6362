// Package report models the configured reports of the catalog and resolves
// their parameter metadata.
package report

import (
	"strings"
	"time"

	"github.com/queryex/api/pkg/domain/access"
)

// Row is the stored form of a report: one field per catalog column, with every
// list still in its delimited text form.
type Row struct {
	ID                int
	Path              string
	Parameters        string
	Title             string
	AllowedUsers      string
	SQL               string
	Automatic         bool
	SendInterval      string
	LastSentAt        *time.Time
	Recipients        string
	EmailSubject      string
	ClientPermission  string
	AllowedGroups     string
	AllowedOrgUnits   string
	Editable          bool
	ColumnOverrides   string
	ParameterDefaults string
	DropdownQueries   string
	StaticValues      string
	MultiValueFlags   string
	ExcelGroupColumns string
	ExcelSumColumns   string
}

// Delivery holds the scheduled e-mail delivery settings of a report.
type Delivery struct {
	Automatic  bool       `json:"automatic"`
	Interval   string     `json:"interval,omitempty"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
	Recipients []string   `json:"recipients,omitempty"`
	Subject    string     `json:"subject,omitempty"`
}

// Definition is one configured report.
type Definition struct {
	id                int
	rawPath           string
	path              []string
	title             string
	sql               string
	parameterNames    []string
	parameterDefaults []string
	dropdownQueries   []string
	staticValues      StaticValues
	multiValueFlags   []string
	columnOverrides   []string
	excelGroupColumns []string
	excelSumColumns   []string
	restrictions      access.Restrictions
	clientPermission  string
	delivery          Delivery
	rawRecipients     string
	editable          bool
}

// FromRow maps a stored row into a Definition. It applies no filtering.
func FromRow(r Row) *Definition {
	return &Definition{
		id:                r.ID,
		rawPath:           r.Path,
		path:              SplitSet(r.Path, SegmentDelimiter),
		title:             r.Title,
		sql:               r.SQL,
		parameterNames:    SplitPositional(r.Parameters),
		parameterDefaults: SplitPositional(r.ParameterDefaults),
		dropdownQueries:   SplitPositional(r.DropdownQueries),
		staticValues:      ParseStaticValues(r.StaticValues),
		multiValueFlags:   SplitPositional(r.MultiValueFlags),
		columnOverrides:   SplitPositional(r.ColumnOverrides),
		excelGroupColumns: SplitSet(r.ExcelGroupColumns, SegmentDelimiter),
		excelSumColumns:   SplitSet(r.ExcelSumColumns, SegmentDelimiter),
		restrictions: access.Restrictions{
			Users:    SplitSet(r.AllowedUsers, SegmentDelimiter),
			Groups:   SplitSet(r.AllowedGroups, SegmentDelimiter),
			OrgUnits: SplitSet(r.AllowedOrgUnits, SegmentDelimiter),
		},
		clientPermission: r.ClientPermission,
		delivery: Delivery{
			Automatic:  r.Automatic,
			Interval:   r.SendInterval,
			LastSentAt: r.LastSentAt,
			Recipients: SplitSet(strings.ReplaceAll(r.Recipients, ",", SegmentDelimiter), SegmentDelimiter),
			Subject:    r.EmailSubject,
		},
		rawRecipients: r.Recipients,
		editable:      r.Editable,
	}
}

// Row serializes the definition back to its stored form. Positional lists
// keep their empty slots.
func (d *Definition) Row() Row {
	return Row{
		ID:                d.id,
		Path:              d.rawPath,
		Parameters:        JoinPositional(d.parameterNames),
		Title:             d.title,
		AllowedUsers:      strings.Join(d.restrictions.Users, SegmentDelimiter),
		SQL:               d.sql,
		Automatic:         d.delivery.Automatic,
		SendInterval:      d.delivery.Interval,
		LastSentAt:        d.delivery.LastSentAt,
		Recipients:        d.rawRecipients,
		EmailSubject:      d.delivery.Subject,
		ClientPermission:  d.clientPermission,
		AllowedGroups:     strings.Join(d.restrictions.Groups, SegmentDelimiter),
		AllowedOrgUnits:   strings.Join(d.restrictions.OrgUnits, SegmentDelimiter),
		Editable:          d.editable,
		ColumnOverrides:   JoinPositional(d.columnOverrides),
		ParameterDefaults: JoinPositional(d.parameterDefaults),
		DropdownQueries:   JoinPositional(d.dropdownQueries),
		StaticValues:      d.staticValues.String(),
		MultiValueFlags:   JoinPositional(d.multiValueFlags),
		ExcelGroupColumns: strings.Join(d.excelGroupColumns, SegmentDelimiter),
		ExcelSumColumns:   strings.Join(d.excelSumColumns, SegmentDelimiter),
	}
}

// ID returns the report id.
func (d *Definition) ID() int {
	return d.id
}

// RawPath returns the path as stored.
func (d *Definition) RawPath() string {
	return d.rawPath
}

// Path returns the trimmed, non-empty path segments.
func (d *Definition) Path() []string {
	return d.path
}

// Title returns the user-facing name.
func (d *Definition) Title() string {
	return d.title
}

// SQL returns the parameterized query text.
func (d *Definition) SQL() string {
	return d.sql
}

// ParameterNames returns the raw positional parameter names.
func (d *Definition) ParameterNames() []string {
	return d.parameterNames
}

// ParameterDefaults returns the raw positional default values.
func (d *Definition) ParameterDefaults() []string {
	return d.parameterDefaults
}

// DropdownQueries returns the raw positional dropdown queries.
func (d *Definition) DropdownQueries() []string {
	return d.dropdownQueries
}

// StaticValues returns the name-keyed static choices.
func (d *Definition) StaticValues() StaticValues {
	return d.staticValues
}

// MultiValueFlags returns the raw positional multi-select flags.
func (d *Definition) MultiValueFlags() []string {
	return d.multiValueFlags
}

// ColumnOverrides returns the spreadsheet column names, by result position.
func (d *Definition) ColumnOverrides() []string {
	return d.columnOverrides
}

// ExcelGroupColumns returns the columns rows are grouped by on export.
func (d *Definition) ExcelGroupColumns() []string {
	return d.excelGroupColumns
}

// ExcelSumColumns returns the columns totalled on export.
func (d *Definition) ExcelSumColumns() []string {
	return d.excelSumColumns
}

// Restrictions returns the three permission axes.
func (d *Definition) Restrictions() access.Restrictions {
	return d.restrictions
}

// ClientPermission returns the client permission column as stored.
func (d *Definition) ClientPermission() string {
	return d.clientPermission
}

// Delivery returns the scheduled delivery settings.
func (d *Definition) Delivery() Delivery {
	return d.delivery
}

// Editable reports whether the report may be edited from the dashboard.
func (d *Definition) Editable() bool {
	return d.editable
}

// HasPath reports whether the report can be placed in the menu.
func (d *Definition) HasPath() bool {
	return len(d.path) > 0
}
