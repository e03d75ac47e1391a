// Package codegen renders the generated C header that carries the product
// identifiers and element macros into the firmware build.
package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meshx/meshx-tools/internal/deps"
	"github.com/meshx/meshx-tools/internal/profile"
)

// DefaultHeaderPath is where the firmware build expects the generated header.
const DefaultHeaderPath = "prod_common/common/codegen.h"

// MaxProductNameLen is the number of characters of the product name kept in
// CONFIG_PRODUCT_NAME.
const MaxProductNameLen = 16

const (
	guard    = "__AUTO_GEN__"
	preamble = "/****************************************************************************\n" +
		" * AUTOGEN CODE\n" +
		"****************************************************************************/\n" +
		"#ifndef " + guard + "\n" +
		"#define " + guard + "\n"
	trailer = "\n\n#endif /* " + guard + " */\n"
)

// Emit renders the header for prod. Product constants come first, then one
// define per catalog macro in catalog order.
func Emit(prod *profile.Product, cid int, macros []deps.ResolvedMacro) string {
	var b strings.Builder
	b.WriteString(preamble)

	define(&b, "CONFIG_CID_ID", cid)
	define(&b, "CONFIG_PID_ID", prod.PID)
	define(&b, "CONFIG_PRODUCT_NAME", `"`+TruncateName(prod.Name)+`"`)
	define(&b, "CONFIG_MAX_ELEMENT_COUNT", prod.MaxElementCount())

	for _, m := range macros {
		define(&b, m.Def, m.Value.Int())
	}

	b.WriteString(trailer)
	return b.String()
}

// TruncateName keeps the first MaxProductNameLen characters of name.
func TruncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxProductNameLen {
		return name
	}
	return string(runes[:MaxProductNameLen])
}

// WriteHeader writes text to path, creating parent directories and
// replacing any previous content.
func WriteHeader(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create header directory: %w", err)
	}
	//nolint:gosec // G306: generated source, world-readable like the rest of the tree
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write header %s: %w", path, err)
	}
	return nil
}

func define(b *strings.Builder, name string, value interface{}) {
	fmt.Fprintf(b, "\n#define %s %v", name, value)
}
