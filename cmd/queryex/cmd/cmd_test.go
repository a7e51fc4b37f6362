package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		raw     []string
		want    []Arg
		wantErr bool
	}{
		{name: "none", raw: nil, want: nil},
		{
			name: "single",
			raw:  []string{"Fecha Desde=2024-01-01"},
			want: []Arg{{Name: "Fecha Desde", Value: str("2024-01-01")}},
		},
		{
			name: "empty value kept",
			raw:  []string{"Cliente="},
			want: []Arg{{Name: "Cliente", Value: str("")}},
		},
		{
			name: "value with equals",
			raw:  []string{"Filtro=a=b"},
			want: []Arg{{Name: "Filtro", Value: str("a=b")}},
		},
		{
			name: "repeated names merge",
			raw:  []string{"Cliente=C1", "Pais=ES", "Cliente=C2"},
			want: []Arg{
				{Name: "Cliente", Values: []string{"C1", "C2"}},
				{Name: "Pais", Value: str("ES")},
			},
		},
		{name: "missing equals", raw: []string{"Cliente"}, wantErr: true},
		{name: "missing name", raw: []string{"=x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_SendsCredentials(t *testing.T) {
	var gotAuth, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUser = r.Header.Get("X-Remote-User")
		_, _ = w.Write([]byte(`{"username":"ana"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", Credentials{Token: "tok", User: "ana"}, false)
	data, err := c.Get(context.Background(), "/api/v1/me")
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"ana"}`, string(data))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "ana", gotUser)
}

func TestClient_PostBody(t *testing.T) {
	var got ExecuteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	v := "ES"
	_, err := NewClient(srv.URL, Credentials{}, false).Post(context.Background(), "/x", ExecuteRequest{Args: []Arg{{Name: "Pais", Value: &v}}})
	require.NoError(t, err)
	require.Len(t, got.Args, 1)
	assert.Equal(t, "Pais", got.Args[0].Name)
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "structured",
			status:   http.StatusNotFound,
			body:     `{"error":"NOT_FOUND","code":"NOT_FOUND","message":"Report not found"}`,
			wantCode: "NOT_FOUND",
			wantMsg:  "Report not found",
		},
		{
			name:     "validation details",
			status:   http.StatusUnprocessableEntity,
			body:     `{"code":"VALIDATION_FAILED","message":"Validation failed","details":[{"field":"prefix","message":"invalid"}]}`,
			wantCode: "VALIDATION_FAILED",
			wantMsg:  "Validation failed\n  prefix: invalid",
		},
		{
			name:    "unauthorized without body",
			status:  http.StatusUnauthorized,
			body:    ``,
			wantMsg: "unauthorized: invalid or missing credentials",
		},
		{
			name:    "plain text",
			status:  http.StatusBadGateway,
			body:    `upstream down`,
			wantMsg: "API error: 502 Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, status, err := NewClient(srv.URL, Credentials{}, false).Do(context.Background(), http.MethodGet, "/", nil)
			require.Error(t, err)
			assert.Equal(t, tt.status, status)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMsg, apiErr.Error())
		})
	}
}

func TestPrintMenuTree(t *testing.T) {
	id1, id2 := 1, 2
	nodes := []*MenuNode{
		{Name: "Ventas", Children: []*MenuNode{
			{Name: "Diario", ReportID: &id1},
			{Name: "Mensual", ReportID: &id2},
		}},
		{Name: "Stock"},
	}

	var buf bytes.Buffer
	printMenuTree(&buf, nodes, "")

	want := "├── Ventas\n" +
		"│   ├── Diario [1]\n" +
		"│   └── Mensual [2]\n" +
		"└── Stock\n"
	assert.Equal(t, want, buf.String())
}

func TestConfig_Contexts(t *testing.T) {
	configDirOverride = t.TempDir()
	t.Cleanup(func() { configDirOverride = "" })

	cfg := &Config{}
	cfg.SetContext("prod", ContextDetail{APIURL: "https://reports", Token: "t"})
	cfg.SetContext("dev", ContextDetail{APIURL: "http://localhost:8080", User: "ana"})
	cfg.SetContext("prod", ContextDetail{APIURL: "https://reports.internal", Token: "t2"})
	cfg.CurrentContext = "dev"
	require.NoError(t, saveConfig(cfg))

	loaded, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "queryex/v1", loaded.APIVersion)
	assert.Equal(t, "dev", loaded.CurrentContext)
	require.Len(t, loaded.Contexts, 2)
	assert.Equal(t, "https://reports.internal", loaded.GetContext("prod").Context.APIURL)
	assert.Nil(t, loaded.GetContext("missing"))

	assert.Equal(t, "token", authKind(loaded.GetContext("prod").Context))
	assert.Equal(t, "user:ana", authKind(loaded.GetContext("dev").Context))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "NULL", cellString(nil))
	assert.Equal(t, "abc", cellString("abc"))
	assert.Equal(t, "12.5", cellString(12.5))
	assert.Equal(t, "1e+06", cellString(1e6))
	assert.Equal(t, "true", cellString(true))
	assert.Equal(t, `["a"]`, cellString([]any{"a"}))
}
