package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Shapes(t *testing.T) {
	want := []Trait{{"Background", "Blue"}, {"Hat", "Red Cap"}}

	tests := []struct {
		name string
		data string
	}{
		{"AttributesObjects", `{"name":"Token #1","attributes":[{"trait_type":"Background","value":"Blue"},{"trait_type":"Hat","value":"Red Cap"}]}`},
		{"TraitsWithTypeKey", `{"traits":[{"type":"Background","value":"Blue"},{"category":"Hat","value":"Red Cap"}]}`},
		{"Pairs", `{"traits":[["Background","Blue"],["Hat","Red Cap"]]}`},
		{"AttributesMap", `{"attributes":{"Background":"Blue","Hat":"Red Cap"}}`},
		{"FlatObject", `{"name":"Token #1","image":"ipfs://x","Background":"Blue","Hat":"Red Cap"}`},
		{"TopLevelArray", `[{"trait_type":"Background","value":"Blue"},{"trait_type":"Hat","value":"Red Cap"}]`},
		{"CaseInsensitiveKeys", `{"Attributes":[{"Trait_Type":"Background","Value":"Blue"},{"TRAIT_TYPE":"Hat","VALUE":"Red Cap"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Parse([]byte(tt.data), "1", Options{})
			require.NoError(t, err)
			assert.Equal(t, want, tok.Traits)
			assert.Equal(t, "1", tok.ID)
		})
	}
}

func TestParse_KeepsDeclarationOrder(t *testing.T) {
	tok, err := Parse([]byte(`{"Zeta":"a","Alpha":"b","Mid":"c"}`), "7", Options{})
	require.NoError(t, err)
	assert.Equal(t, []Trait{{"Zeta", "a"}, {"Alpha", "b"}, {"Mid", "c"}}, tok.Traits)
}

func TestParse_Identifier(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"ID", `{"id":12,"attributes":[]}`, "12"},
		{"TokenID", `{"token_id":"0042","attributes":[]}`, "0042"},
		{"Edition", `{"edition":3,"attributes":[]}`, "3"},
		{"Stem", `{"attributes":[]}`, "stem"},
		{"PathLikeIgnored", `{"id":"../evil","attributes":[]}`, "stem"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Parse([]byte(tt.data), "stem", Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok.ID)
		})
	}
}

func TestParse_IgnoresEmptyAndSkipValues(t *testing.T) {
	data := `{"attributes":[
		{"trait_type":"Background","value":"Blue"},
		{"trait_type":"Hat","value":"None"},
		{"trait_type":"","value":"Orphan"},
		{"trait_type":"Eyes","value":""},
		{"trait_type":"Mouth"},
		{"trait_type":"Level","value":5}
	]}`

	tok, err := Parse([]byte(data), "1", Options{})
	require.NoError(t, err)
	assert.Equal(t, []Trait{{"Background", "Blue"}, {"Level", "5"}}, tok.Traits)
	assert.Equal(t, 4, tok.Ignored)

	tok, err = Parse([]byte(data), "1", Options{SkipValues: []string{}})
	require.NoError(t, err)
	assert.Contains(t, tok.Traits, Trait{"Hat", "None"})

	tok, err = Parse([]byte(data), "1", Options{SkipValues: []string{"blue"}})
	require.NoError(t, err)
	assert.NotContains(t, tok.Traits, Trait{"Background", "Blue"})
}

func TestParse_NoTraits(t *testing.T) {
	tok, err := Parse([]byte(`{"name":"Empty","attributes":null}`), "9", Options{})
	require.NoError(t, err)
	assert.Empty(t, tok.Traits)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Empty", ""},
		{"NotJSON", "hello world"},
		{"Truncated", `{"attributes":[{"trait_type":"Hat"`},
		{"Scalar", `"just a string"`},
		{"BadTraitList", `{"attributes":"Hat"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "1", Options{})
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "5.json")
	bad := filepath.Join(dir, "6")
	require.NoError(t, os.WriteFile(good, []byte(`{"attributes":[{"trait_type":"Hat","value":"Red"}]}`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`{not json`), 0o644))

	tok, err := Load(good, Options{})
	require.NoError(t, err)
	assert.Equal(t, "5", tok.ID)
	assert.Equal(t, good, tok.Source)
	assert.Len(t, tok.Traits, 1)

	_, err = Load(bad, Options{})
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, bad, parseErr.Path)

	_, err = Load(filepath.Join(dir, "missing.json"), Options{})
	require.True(t, errors.As(err, &parseErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "12", Stem("/meta/12.json"))
	assert.Equal(t, "12", Stem("/meta/12.JSON"))
	assert.Equal(t, "12", Stem("12"))
	assert.Equal(t, "token.v2", Stem("token.v2"))
	assert.Equal(t, "3", Stem("/meta/3.txt"))
	assert.Equal(t, "Ape.Gold", Stem("Ape.Gold"))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"10.json", "2.json", "1", "_summary.json", ".DS_Store", "3.JSON", "preview.png", "7.JPG"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "4.json"), 0o755))

	paths, err := Discover(dir)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"1", "2.json", "3.JSON", "10.json"}, names)

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDiscover_AnyExtension(t *testing.T) {
	dir := t.TempDir()
	record := []byte(`{"attributes": [{"trait_type": "Background", "value": "Blue"}]}`)
	for _, name := range []string{"1", "2.json", "3.txt", "4.5", "Ape.Gold"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), record, 0o644))
	}

	paths, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, paths, 5)

	for _, p := range paths {
		tok, err := Load(p, Options{})
		require.NoError(t, err, p)
		assert.Len(t, tok.Traits, 1)
	}
}

func TestIsRecordFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"1", true},
		{"1.json", true},
		{"3.txt", true},
		{"Ape.Gold", true},
		{"4.5", true},
		{".DS_Store", false},
		{"_summary.json", false},
		{"1.png", false},
		{"1.JPEG", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRecordFile(tt.name), tt.name)
	}
}
