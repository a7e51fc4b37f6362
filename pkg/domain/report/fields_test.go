package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPositional_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "Cliente", []string{"Cliente"}},
		{"empty slots kept", "Fecha Desde;;Cliente;", []string{"Fecha Desde", "", "Cliente", ""}},
		{"only delimiters", ";;", []string{"", "", ""}},
		{"whitespace kept", " A ; B", []string{" A ", " B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPositional(tt.field)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.field, JoinPositional(got))
		})
	}
}

func TestSplitSet(t *testing.T) {
	assert.Nil(t, SplitSet("   ", ";"))
	assert.Equal(t, []string{"A", "B"}, SplitSet(" A ;; B ;", ";"))
	assert.Equal(t, []string{"x", "y"}, SplitSet("x,,y", ","))
}

func TestParseStaticValues(t *testing.T) {
	sv := ParseStaticValues("Pais:España,Francia;Cliente:Acme,Globex")

	require.Equal(t, 2, sv.Len())
	assert.Equal(t, []string{"Pais", "Cliente"}, sv.Keys())

	pais, ok := sv.Get("Pais")
	require.True(t, ok)
	assert.Equal(t, []string{"España", "Francia"}, pais)

	cliente, ok := sv.Get("Cliente")
	require.True(t, ok)
	assert.Equal(t, []string{"Acme", "Globex"}, cliente)
}

func TestParseStaticValues_SkipsMalformed(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		wantKeys []string
	}{
		{"missing colon", "Pais:España;Malformado;Cliente:Acme", []string{"Pais", "Cliente"}},
		{"all malformed", "uno;dos", nil},
		{"empty", "", nil},
		{"trailing delimiter", "Pais:ES,FR;", []string{"Pais"}},
		{"colon in choices", "Hora:10:00,11:00", []string{"Hora"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sv := ParseStaticValues(tt.field)
			assert.Equal(t, tt.wantKeys, sv.Keys())
		})
	}

	hora, _ := ParseStaticValues("Hora:10:00,11:00").Get("Hora")
	assert.Equal(t, []string{"10:00", "11:00"}, hora)
}

func TestStaticValues_String(t *testing.T) {
	field := "Pais:España,Francia;Cliente:Acme,Globex"
	assert.Equal(t, field, ParseStaticValues(field).String())
}
