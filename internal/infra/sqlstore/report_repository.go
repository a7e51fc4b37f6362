package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/queryex/api/pkg/domain/report"
	"github.com/queryex/api/pkg/domain/shared"
)

const reportColumns = `IdQuery, Ruta, Parametros, Descripcion, Permiso, Consulta,
	Automatica, TiempoEnvio, FechaEnvio, Destinatarios, AsuntoEmail,
	PermisoCliente, PermisoGrupos, PermisoOU, Edicion, Columnas,
	ParametrosValor, ConsultasValor, ClavesValores, MultiplesValores,
	AgrupFilasExcel, SumaColumnasExcel`

// ReportRepository implements report.Repository over the catalog table.
type ReportRepository struct {
	db      *DB
	table   string
	timeout time.Duration
}

// NewReportRepository creates a ReportRepository. table must be a validated
// identifier; it is the only text interpolated into the queries.
func NewReportRepository(db *DB, table string, timeout time.Duration) *ReportRepository {
	return &ReportRepository{db: db, table: table, timeout: timeout}
}

func (r *ReportRepository) listQuery() string {
	return fmt.Sprintf(`SELECT %s FROM %s
	WHERE Ruta = @Ruta OR Ruta LIKE @RutaLike ESCAPE '\'
	ORDER BY Ruta, Descripcion`, reportColumns, r.table)
}

func (r *ReportRepository) getQuery() string {
	return fmt.Sprintf(`SELECT %s FROM %s WHERE IdQuery = @Id`, reportColumns, r.table)
}

// ListByPathPrefix returns the reports at or below prefix.
func (r *ReportRepository) ListByPathPrefix(ctx context.Context, prefix string) ([]*report.Definition, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args := r.db.Dialect().Bind(r.listQuery(), []report.BoundParameter{
		{Name: "Ruta", Values: []any{prefix}},
		{Name: "RutaLike", Values: []any{escapeLike(prefix) + "%"}},
	})

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list reports: %w", shared.ErrQueryFailed, err)
	}
	defer rows.Close()

	var defs []*report.Definition
	for rows.Next() {
		d, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan report: %w", shared.ErrQueryFailed, err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate reports: %w", shared.ErrQueryFailed, err)
	}
	return defs, nil
}

// GetByID returns the report with the given id.
func (r *ReportRepository) GetByID(ctx context.Context, id int) (*report.Definition, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args := r.db.Dialect().Bind(r.getQuery(), []report.BoundParameter{
		{Name: "Id", Values: []any{int64(id)}},
	})

	d, err := scanReport(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, report.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get report: %w", shared.ErrQueryFailed, err)
	}
	return d, nil
}

func (r *ReportRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(s rowScanner) (*report.Definition, error) {
	var (
		id                                             int64
		path, title, sqlText                           sql.NullString
		parameters, allowedUsers, sendInterval         sql.NullString
		recipients, subject, clientPermission          sql.NullString
		allowedGroups, allowedOUs, columns             sql.NullString
		defaults, dropdowns, staticValues, multiValues sql.NullString
		groupColumns, sumColumns                       sql.NullString
		automatic, editable                            sql.NullBool
		lastSent                                       sql.NullTime
	)

	err := s.Scan(
		&id, &path, &parameters, &title, &allowedUsers, &sqlText,
		&automatic, &sendInterval, &lastSent, &recipients, &subject,
		&clientPermission, &allowedGroups, &allowedOUs, &editable, &columns,
		&defaults, &dropdowns, &staticValues, &multiValues,
		&groupColumns, &sumColumns,
	)
	if err != nil {
		return nil, err
	}

	return report.FromRow(report.Row{
		ID:                int(id),
		Path:              nullStringValue(path),
		Parameters:        nullStringValue(parameters),
		Title:             nullStringValue(title),
		AllowedUsers:      nullStringValue(allowedUsers),
		SQL:               nullStringValue(sqlText),
		Automatic:         automatic.Valid && automatic.Bool,
		SendInterval:      nullStringValue(sendInterval),
		LastSentAt:        nullTimeValue(lastSent),
		Recipients:        nullStringValue(recipients),
		EmailSubject:      nullStringValue(subject),
		ClientPermission:  nullStringValue(clientPermission),
		AllowedGroups:     nullStringValue(allowedGroups),
		AllowedOrgUnits:   nullStringValue(allowedOUs),
		Editable:          editable.Valid && editable.Bool,
		ColumnOverrides:   nullStringValue(columns),
		ParameterDefaults: nullStringValue(defaults),
		DropdownQueries:   nullStringValue(dropdowns),
		StaticValues:      nullStringValue(staticValues),
		MultiValueFlags:   nullStringValue(multiValues),
		ExcelGroupColumns: nullStringValue(groupColumns),
		ExcelSumColumns:   nullStringValue(sumColumns),
	}), nil
}
