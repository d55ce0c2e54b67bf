package reference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/cloneval/domain"
)

func TestDecode_YAML(t *testing.T) {
	input := `pairs:
  - a: src/A.java:1-10
    b: src/B.java:3-12
    type: T1
    judgment: true
  - a: src/A.java:1-10
    b: src/C.java:1-4
    type: MT3
    judgment: false
`
	decls, err := Decode(strings.NewReader(input), FormatYAML)
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, domain.FragmentID("src/A.java:1-10"), decls[0].First)
	assert.Equal(t, "T1", decls[0].Type)
	assert.Equal(t, "true", decls[0].Judgment)
	assert.Equal(t, 2, decls[0].Line)
	assert.Equal(t, 6, decls[1].Line)
}

func TestDecode_JSON(t *testing.T) {
	input := `{"pairs":[{"a":"x.java:1-2","b":"y.java:1-2","type":"T2","judgment":"unknown"}]}`
	decls, err := Decode(strings.NewReader(input), FormatJSON)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "unknown", decls[0].Judgment)
}

func TestDecode_CSV(t *testing.T) {
	input := "a,b,type,judgment\n# comment\nx.java:1-2, y.java:1-2, T1, true\n"
	decls, err := Decode(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, domain.FragmentID("y.java:1-2"), decls[0].Second)
	assert.Equal(t, 3, decls[0].Line)

	_, err = Decode(strings.NewReader("x.java:1-2,y.java:1-2,T1\n"), FormatCSV)
	assert.True(t, domain.HasCode(err, domain.ErrCodeMalformedReference))
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader("pairs: [1, 2"), FormatYAML)
	assert.True(t, domain.HasCode(err, domain.ErrCodeMalformedReference))

	_, err = Decode(strings.NewReader("clones: []"), FormatYAML)
	assert.True(t, domain.HasCode(err, domain.ErrCodeMalformedReference))

	_, err = Decode(strings.NewReader(""), "xml")
	assert.True(t, domain.HasCode(err, domain.ErrCodeUnsupportedFormat))

	decls, err := Decode(strings.NewReader(""), FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, decls)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFromPath("truth.CSV"))
	assert.Equal(t, FormatJSON, FormatFromPath("truth.json"))
	assert.Equal(t, FormatYAML, FormatFromPath("truth.yml"))
}
