package codegen

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshx/meshx-tools/internal/deps"
	"github.com/meshx/meshx-tools/internal/profile"
)

func TestEmit_Golden(t *testing.T) {
	prod := &profile.Product{
		Name:     "light",
		PID:      1,
		Elements: []profile.ElementRef{{Name: "light_ctl", Value: 2}, {Name: "relay", Value: 1}},
	}
	macros := []deps.ResolvedMacro{
		{Def: "CONFIG_LIGHT_CTL_SRV_COUNT", Value: profile.Int(2)},
		{Def: "CONFIG_ENABLE_GEN_ONOFF_SERVER", Value: profile.Bool(true)},
		{Def: "CONFIG_ENABLE_LIGHT_LIGHTNESS_SERVER", Value: profile.Bool(false)},
	}

	want := `/****************************************************************************
 * AUTOGEN CODE
****************************************************************************/
#ifndef __AUTO_GEN__
#define __AUTO_GEN__

#define CONFIG_CID_ID 741
#define CONFIG_PID_ID 1
#define CONFIG_PRODUCT_NAME "light"
#define CONFIG_MAX_ELEMENT_COUNT 4
#define CONFIG_LIGHT_CTL_SRV_COUNT 2
#define CONFIG_ENABLE_GEN_ONOFF_SERVER 1
#define CONFIG_ENABLE_LIGHT_LIGHTNESS_SERVER 0

#endif /* __AUTO_GEN__ */
`
	assert.Equal(t, want, Emit(prod, 741, macros))
}

func TestEmit_TruncatesProductName(t *testing.T) {
	prod := &profile.Product{Name: "ABCDEFGHIJKLMNOPQRST", PID: 3}

	out := Emit(prod, 1, nil)

	assert.Contains(t, out, "\n#define CONFIG_PRODUCT_NAME \"ABCDEFGHIJKLMNOP\"\n")
	assert.Contains(t, out, "\n#define CONFIG_MAX_ELEMENT_COUNT 1\n")
}

func TestEmit_ProductNameIsVerbatim(t *testing.T) {
	out := Emit(&profile.Product{Name: "hall-light.v2", PID: 5}, 1, nil)

	assert.Contains(t, out, "\n#define CONFIG_PRODUCT_NAME \"hall-light.v2\"\n")
}

func TestTruncateName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "short"},
		{"exactly16chars!!", "exactly16chars!!"},
		{"ABCDEFGHIJKLMNOPQRST", "ABCDEFGHIJKLMNOP"},
		{"éclairage-salon-principal", "éclairage-salon-"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateName(tt.in), "TruncateName(%q)", tt.in)
	}
}

func TestEmit_BooleansAreNumeric(t *testing.T) {
	macros := []deps.ResolvedMacro{
		{Def: "CONFIG_A", Value: profile.Bool(true)},
		{Def: "CONFIG_B", Value: profile.Bool(false)},
	}
	out := Emit(&profile.Product{Name: "x"}, 0, macros)

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "#define CONFIG_A") || strings.HasPrefix(line, "#define CONFIG_B") {
			assert.Regexp(t, regexp.MustCompile(` [01]$`), line)
		}
	}
	assert.NotContains(t, out, "true")
	assert.NotContains(t, out, "false")
}

func TestEmit_FromExpansion(t *testing.T) {
	p := &profile.Profile{
		Prod: profile.Prod{CID: 741},
		Elements: []profile.ElementDef{
			{Name: "btn", Path: "p/btn", Macro: profile.Macro{Def: "CONFIG_BTN", Value: profile.Int(0)}},
		},
	}
	prod := &profile.Product{Name: "btn_node", PID: 7, Elements: []profile.ElementRef{{Name: "btn", Value: 3}}}

	res, err := deps.Expand(p, prod, deps.Options{})
	require.NoError(t, err)

	out := Emit(prod, p.Prod.CID, res.Macros)
	assert.Contains(t, out, "\n#define CONFIG_BTN 3")
	assert.Contains(t, out, "\n#define CONFIG_MAX_ELEMENT_COUNT 4")
}

func TestWriteHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prod_common", "common", "codegen.h")

	require.NoError(t, WriteHeader(path, "old contents that are longer"))
	require.NoError(t, WriteHeader(path, "new"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
