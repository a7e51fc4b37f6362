package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyParameter(t *testing.T) {
	tests := []struct {
		name string
		want ParameterType
	}{
		{"Fecha Desde", ParameterTypeDate},
		{"StartDate", ParameterTypeDate},
		{"FechaActivo", ParameterTypeDate},
		{"FECHA", ParameterTypeDate},
		{"Desde", ParameterTypeNumber},
		{"Hasta", ParameterTypeNumber},
		{"Año", ParameterTypeNumber},
		{"AÑO", ParameterTypeNumber},
		{"Mes", ParameterTypeNumber},
		{"Cantidad Minima", ParameterTypeNumber},
		{"Numero Pedido", ParameterTypeNumber},
		{"Activo", ParameterTypeBoolean},
		{"Habilitado", ParameterTypeBoolean},
		{"SiNo", ParameterTypeBoolean},
		{"Cliente", ParameterTypeText},
		{"Pais", ParameterTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyParameter(tt.name))
		})
	}
}

func TestBoundName(t *testing.T) {
	assert.Equal(t, "@FechaDesde", BoundName(" Fecha Desde "))
	assert.Equal(t, "@Cliente", BoundName("Cliente"))
	assert.Equal(t, "Cliente", StripMarker("@Cliente"))
	assert.Equal(t, "Cliente", StripMarker("Cliente"))
}

func TestDefinition_Parameters_Alignment(t *testing.T) {
	def := FromRow(Row{
		ID:                1,
		Parameters:        "Fecha Desde;;Cliente;Pais;Activo",
		ParameterDefaults: "2024-01-01;;;ES",
		DropdownQueries:   ";;SELECT Codigo, Nombre FROM Clientes",
		StaticValues:      "Pais:ES,FR;Otro:1,2",
		MultiValueFlags:   ";;1",
	})

	params := def.Parameters()
	require.Len(t, params, 4)

	names := def.ParameterNames()
	defaults := def.ParameterDefaults()
	queries := def.DropdownQueries()
	for _, p := range params {
		assert.Equal(t, p.Name, names[p.Order])
		if p.DefaultValue != nil {
			assert.Equal(t, *p.DefaultValue, defaults[p.Order])
		}
		if p.DropdownQuery != nil {
			assert.Equal(t, *p.DropdownQuery, queries[p.Order])
		}
	}

	fecha := params[0]
	assert.Equal(t, "Fecha Desde", fecha.Name)
	assert.Equal(t, "@FechaDesde", fecha.BoundName)
	assert.Equal(t, 0, fecha.Order)
	assert.Equal(t, ParameterTypeDate, fecha.Type)
	require.NotNil(t, fecha.DefaultValue)
	assert.Equal(t, "2024-01-01", *fecha.DefaultValue)
	assert.Equal(t, fecha.DefaultValue, fecha.Value)
	assert.False(t, fecha.IsDropdown())

	cliente := params[1]
	assert.Equal(t, "Cliente", cliente.Name)
	assert.Equal(t, 2, cliente.Order)
	assert.Nil(t, cliente.DefaultValue)
	require.NotNil(t, cliente.DropdownQuery)
	assert.Equal(t, "SELECT Codigo, Nombre FROM Clientes", *cliente.DropdownQuery)
	assert.True(t, cliente.MultiSelect)
	assert.True(t, cliente.IsDropdown())

	pais := params[2]
	assert.Equal(t, 3, pais.Order)
	require.NotNil(t, pais.DefaultValue)
	assert.Equal(t, "ES", *pais.DefaultValue)
	assert.Nil(t, pais.DropdownQuery)
	assert.Equal(t, []string{"ES", "FR"}, pais.StaticChoices)
	assert.True(t, pais.IsDropdown())

	activo := params[3]
	assert.Equal(t, 4, activo.Order)
	assert.Equal(t, ParameterTypeBoolean, activo.Type)
	assert.Nil(t, activo.DefaultValue)
	assert.False(t, activo.MultiSelect)
}

func TestDefinition_Parameters_Empty(t *testing.T) {
	tests := []struct {
		name   string
		params string
	}{
		{"no field", ""},
		{"only blanks", " ; ;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := FromRow(Row{Parameters: tt.params})
			assert.Empty(t, def.Parameters())
		})
	}
}

func TestDefinition_Parameter(t *testing.T) {
	def := FromRow(Row{Parameters: "Fecha Desde;Cliente"})

	p, err := def.Parameter("@FechaDesde")
	require.NoError(t, err)
	assert.Equal(t, "Fecha Desde", p.Name)

	p, err = def.Parameter("cliente")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Order)

	_, err = def.Parameter("Pais")
	assert.ErrorIs(t, err, ErrParameterNotFound)
}

func TestDefinition_StaticChoicesByBoundName(t *testing.T) {
	def := FromRow(Row{
		Parameters:   "Tipo Cliente",
		StaticValues: "@TipoCliente:A,B",
	})
	params := def.Parameters()
	require.Len(t, params, 1)
	assert.Equal(t, []string{"A", "B"}, params[0].StaticChoices)
}
