package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/sareeta-shop/internal/domain/item"
)

type fakeCatalog struct {
	names     []string
	batches   [][]item.Item
	checked   []string
	insertErr error
}

func (f *fakeCatalog) Names(context.Context) ([]string, error) {
	return f.names, nil
}

func (f *fakeCatalog) ExistingNames(_ context.Context, names []string) ([]string, error) {
	f.checked = append(f.checked, names...)
	var out []string
	for _, n := range names {
		if slices.Contains(f.names, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Insert(_ context.Context, items []item.Item) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.batches = append(f.batches, slices.Clone(items))
	return int64(len(items)), nil
}

func (f *fakeCatalog) inserted() []string {
	var out []string
	for _, b := range f.batches {
		for _, it := range b {
			out = append(out, it.Name)
		}
	}
	return out
}

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParseItem(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    item.Item
		wantErr string
	}{
		{
			name: "string price",
			line: `{"name":"Toothbrush","price":"3.99","description":"Teeth cleaner"}`,
			want: item.Item{Name: "Toothbrush", Price: decimal.RequireFromString("3.99"), Description: "Teeth cleaner"},
		},
		{
			name: "number price rounded",
			line: `{"name":" Widget ","price":1.995,"extra":{"a":[1,2]}}`,
			want: item.Item{Name: "Widget", Price: decimal.RequireFromString("2.00")},
		},
		{name: "missing name", line: `{"price":"1.00"}`, wantErr: "name is required"},
		{name: "missing price", line: `{"name":"Widget"}`, wantErr: "price is required"},
		{name: "negative price", line: `{"name":"Widget","price":"-1"}`, wantErr: "negative price"},
		{name: "bool price", line: `{"name":"Widget","price":true}`, wantErr: "price"},
		{name: "not json", line: `name=Widget`, wantErr: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseItem([]byte(tt.line))
			if tt.wantErr != "" || tt.want.Name == "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Description, got.Description)
			assert.True(t, tt.want.Price.Equal(got.Price), "price %s", got.Price)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeGz(t, dir, "a.jsonl.gz",
		`{"name":"A","price":"1.00"}`,
		``,
		`{"name":"B","price":2}`,
		`broken`,
	)

	items, invalid, err := readFile(context.Background(), zap.NewNop(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, invalid)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Name)
	assert.Equal(t, "B", items[1].Name)
}

func TestReadFile_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jsonl.gz")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"A","price":"1"}`), 0o600))

	_, _, err := readFile(context.Background(), zap.NewNop(), path)
	require.Error(t, err)
}

func TestImporter_Run(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "1.jsonl.gz",
			`{"name":"Toothbrush","price":"3.99"}`,
			`{"name":"Soap","price":"0.99"}`,
			`{"name":"Soap","price":"1.49"}`,
		),
		writeGz(t, dir, "2.jsonl.gz",
			`{"name":"Towel","price":"5.00"}`,
			`{"name":"Soap","price":"0.99"}`,
			`{"name":"Sponge","price":"0.50"}`,
			`oops`,
		),
	}
	cat := &fakeCatalog{names: []string{"Toothbrush", "Round Widget"}}

	st, err := newImporter(cat, zap.NewNop(), 2).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 6, st.Read)
	assert.Equal(t, 1, st.Invalid)
	assert.Equal(t, 2, st.Duplicates)
	assert.Equal(t, 1, st.Existing)
	assert.EqualValues(t, 3, st.Inserted)
	assert.Equal(t, []string{"Soap", "Towel", "Sponge"}, cat.inserted())
	assert.Len(t, cat.batches, 2)
	assert.Contains(t, cat.checked, "Toothbrush")
}

func TestImporter_InsertError(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeGz(t, dir, "1.jsonl.gz", `{"name":"Soap","price":"0.99"}`)}
	cat := &fakeCatalog{insertErr: errors.New("copy failed")}

	_, err := newImporter(cat, zap.NewNop(), 0).Run(context.Background(), files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy failed")
}

func TestImporter_MissingFile(t *testing.T) {
	_, err := newImporter(&fakeCatalog{}, zap.NewNop(), 10).Run(context.Background(), []string{"/nonexistent.jsonl.gz"})
	require.Error(t, err)
}
