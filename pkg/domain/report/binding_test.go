package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindingFixture() []Descriptor {
	return FromRow(Row{
		Parameters:        "Fecha Desde;Cantidad;Cliente;Activo;Notas",
		ParameterDefaults: "GETDATE();10",
		MultiValueFlags:   ";;si",
	}).Parameters()
}

func TestBind(t *testing.T) {
	params := bindingFixture()

	bound, err := Bind(params, Args{
		StringArg("@FechaDesde", "2024-03-01"),
		StringArg("cantidad", "25"),
		{Name: "Cliente", Values: []string{"C001", "C002"}},
		StringArg("Activo", "sí"),
	})
	require.NoError(t, err)
	require.Len(t, bound, 5)

	assert.Equal(t, "FechaDesde", bound[0].Name)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), bound[0].Value())

	assert.Equal(t, "Cantidad", bound[1].Name)
	assert.Equal(t, int64(25), bound[1].Value())

	assert.True(t, bound[2].Multi)
	assert.Equal(t, []any{"C001", "C002"}, bound[2].Values)

	assert.Equal(t, true, bound[3].Value())

	assert.Equal(t, "Notas", bound[4].Name)
	assert.Nil(t, bound[4].Value())
}

func TestBind_Defaults(t *testing.T) {
	bound, err := Bind(bindingFixture(), nil)
	require.NoError(t, err)

	// "GETDATE()" is not a date literal, so it binds as NULL.
	assert.Nil(t, bound[0].Value())
	assert.Equal(t, int64(10), bound[1].Value())
	assert.Empty(t, bound[2].Values)
}

func TestBind_MultiFromCommaValue(t *testing.T) {
	bound, err := Bind(bindingFixture(), Args{StringArg("Cliente", "C001, C002,")})
	require.NoError(t, err)
	assert.Equal(t, []any{"C001", "C002"}, bound[2].Values)
}

func TestBind_UnconvertibleValueBindsText(t *testing.T) {
	params := FromRow(Row{Parameters: "Desde;Hasta;Cantidad"}).Parameters()
	require.Equal(t, ParameterTypeNumber, params[0].Type)
	require.Equal(t, ParameterTypeNumber, params[1].Type)

	bound, err := Bind(params, Args{
		StringArg("Desde", "2024-01-01"),
		StringArg("@Hasta", " 31/01/2024 "),
		StringArg("Cantidad", "12"),
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", bound[0].Value())
	assert.Equal(t, "31/01/2024", bound[1].Value())
	assert.Equal(t, int64(12), bound[2].Value())
}

func TestBind_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    Args
		wantErr error
	}{
		{
			name:    "unknown parameter",
			args:    Args{StringArg("@Pais", "ES")},
			wantErr: ErrUnknownParameter,
		},
		{
			name:    "duplicate parameter",
			args:    Args{StringArg("Cantidad", "1"), StringArg("@Cantidad", "2")},
			wantErr: ErrDuplicateParameter,
		},
		{
			name:    "multiple values for single parameter",
			args:    Args{{Name: "Notas", Values: []string{"a", "b"}}},
			wantErr: ErrNotMultiValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(bindingFixture(), tt.args)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		typ     ParameterType
		raw     string
		want    any
		wantErr bool
	}{
		{"text kept verbatim", ParameterTypeText, " a ", " a ", false},
		{"blank number is null", ParameterTypeNumber, "  ", nil, false},
		{"integer", ParameterTypeNumber, "42", int64(42), false},
		{"decimal point", ParameterTypeNumber, "4.5", 4.5, false},
		{"decimal comma", ParameterTypeNumber, "4,5", 4.5, false},
		{"iso date", ParameterTypeDate, "2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"day first date", ParameterTypeDate, "05/01/2024", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), false},
		{"bad date", ParameterTypeDate, "ayer", nil, true},
		{"si", ParameterTypeBoolean, "Si", true, false},
		{"no", ParameterTypeBoolean, "no", false, false},
		{"true", ParameterTypeBoolean, "true", true, false},
		{"bad boolean", ParameterTypeBoolean, "quizas", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.typ, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
