package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covtrack/covtrack/internal/model"
)

const jacocoSample = `<?xml version="1.0" encoding="UTF-8"?>
<report name="demo">
  <package name="com/example/app">
    <sourcefile name="Main.java">
      <line nr="3" mi="0" ci="5"/>
      <line nr="4" mi="2" ci="3" mb="1" cb="1"/>
      <line nr="5" mi="4" ci="0"/>
    </sourcefile>
  </package>
</report>`

func TestJaCoCoParser_Parse(t *testing.T) {
	files, err := (&JaCoCoParser{}).Parse([]byte(jacocoSample))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal(t, "com/example/app/Main.java", f.Path, "package name prefixes the source file")
	assert.Equal(t, model.Covered(5), f.Lines[3], "ci > 0 and mi == 0 is covered")
	assert.Equal(t, model.Partial(3), f.Lines[4], "ci > 0 and mi > 0 is partial")
	assert.Equal(t, model.Uncovered(), f.Lines[5], "ci == 0 is uncovered")
	assert.Equal(t, 2, f.BranchesTotal)
	assert.Equal(t, 1, f.BranchesCovered)
}

func TestJaCoCoParser_NoPackageName(t *testing.T) {
	input := `<report><package><sourcefile name="Main.java"><line nr="1" mi="0" ci="1"/></sourcefile></package></report>`
	files, err := (&JaCoCoParser{}).Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "Main.java", files[0].Path)
}

func TestJaCoCoParser_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing nr", `<report><package name="p"><sourcefile name="a.java"><line mi="0" ci="1"/></sourcefile></package></report>`},
		{"missing mi", `<report><package name="p"><sourcefile name="a.java"><line nr="1" ci="1"/></sourcefile></package></report>`},
		{"missing ci", `<report><package name="p"><sourcefile name="a.java"><line nr="1" mi="0"/></sourcefile></package></report>`},
		{"non-numeric nr", `<report><package name="p"><sourcefile name="a.java"><line nr="x" mi="0" ci="1"/></sourcefile></package></report>`},
		{"negative ci", `<report><package name="p"><sourcefile name="a.java"><line nr="1" mi="0" ci="-3"/></sourcefile></package></report>`},
		{"broken xml", `<report><package`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&JaCoCoParser{}).Parse([]byte(tt.input))
			require.Error(t, err)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "jacoco", parseErr.Format)
		})
	}
}

func TestJaCoCoParser_Sniff(t *testing.T) {
	p := &JaCoCoParser{}
	assert.True(t, p.Sniff([]byte(jacocoSample)))
	assert.False(t, p.Sniff([]byte(`<coverage/>`)))
	assert.False(t, p.Sniff([]byte("SF:a.c\n")))
}
