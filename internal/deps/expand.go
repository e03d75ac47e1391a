// Package deps expands a product's element list into the set of firmware
// components it needs and the macro values they resolve to.
//
// Expansion walks each product element depth-first in declared order:
//   - the element's package path is recorded in the dependency map;
//   - a boolean macro is switched on, an integer macro takes the value the
//     element was requested with;
//   - every dependency is then walked with the value 0.
//
// Elements reached through several paths are visited again each time, so the
// last visit decides an integer macro's value. An element met again while it
// is still being expanded is a cycle and stops the expansion.
//
// The profile is never modified; results are returned in a Resolution.
package deps

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/meshx/meshx-tools/internal/profile"
)

// Dependency is a manifest entry for one element.
type Dependency struct {
	Path string `yaml:"path" json:"path"`
}

// DependencyMap maps element names to their manifest entry.
type DependencyMap map[string]Dependency

// ResolvedMacro is a catalog macro with the value expansion gave it.
type ResolvedMacro struct {
	Element string
	Def     string
	Value   profile.MacroValue
	Visited bool
}

// Resolution is the outcome of expanding one product.
type Resolution struct {
	Dependencies DependencyMap
	// Macros covers the whole element catalog in declared order.
	Macros []ResolvedMacro
	// Skipped lists references to elements missing from the catalog, in
	// visiting order. Always empty in strict mode.
	Skipped []string
}

// Options controls expansion.
type Options struct {
	// Strict turns references to unknown elements into errors.
	Strict bool
	Logger *slog.Logger
}

// MissingElementError reports a reference to an element absent from the catalog.
type MissingElementError struct {
	Name     string
	Referrer string
}

func (e *MissingElementError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("element %q referenced by the product is not in the catalog", e.Name)
	}
	return fmt.Sprintf("element %q required by %q is not in the catalog", e.Name, e.Referrer)
}

// CycleError reports a dependency cycle.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Chain, " -> "))
}

type step struct {
	name     string
	value    int
	referrer string
	leave    bool
}

// Expand resolves the elements of prod against the catalog of p.
func Expand(p *profile.Profile, prod *profile.Product, opts Options) (*Resolution, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	index := make(map[string]int, len(p.Elements))
	for i, el := range p.Elements {
		if _, seen := index[el.Name]; !seen {
			index[el.Name] = i
		}
	}

	values := make([]profile.MacroValue, len(p.Elements))
	visited := make([]bool, len(p.Elements))
	for i, el := range p.Elements {
		values[i] = el.Macro.Value
	}

	res := &Resolution{Dependencies: make(DependencyMap)}

	stack := make([]step, 0, len(prod.Elements))
	for i := len(prod.Elements) - 1; i >= 0; i-- {
		ref := prod.Elements[i]
		stack = append(stack, step{name: ref.Name, value: ref.Value})
	}

	var path []string
	onPath := make(map[string]bool)

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.leave {
			delete(onPath, s.name)
			path = path[:len(path)-1]
			continue
		}

		if onPath[s.name] {
			chain := append(append([]string(nil), path...), s.name)
			return nil, &CycleError{Chain: chain}
		}

		i, ok := index[s.name]
		if !ok {
			if opts.Strict {
				return nil, &MissingElementError{Name: s.name, Referrer: s.referrer}
			}
			logger.Warn("skipping unknown element", "element", s.name, "required_by", s.referrer, "product", prod.Name)
			res.Skipped = append(res.Skipped, s.name)
			continue
		}
		def := p.Elements[i]

		res.Dependencies[s.name] = Dependency{Path: def.Path}
		if def.Macro.Value.IsBool() {
			values[i] = profile.Bool(true)
		} else {
			values[i] = profile.Int(s.value)
		}
		visited[i] = true
		logger.Debug("visited element", "element", s.name, "macro", def.Macro.Def, "value", values[i].String())

		onPath[s.name] = true
		path = append(path, s.name)
		stack = append(stack, step{name: s.name, leave: true})
		for j := len(def.Deps) - 1; j >= 0; j-- {
			stack = append(stack, step{name: def.Deps[j], value: 0, referrer: s.name})
		}
	}

	res.Macros = make([]ResolvedMacro, len(p.Elements))
	for i, el := range p.Elements {
		res.Macros[i] = ResolvedMacro{
			Element: el.Name,
			Def:     el.Macro.Def,
			Value:   values[i],
			Visited: visited[i],
		}
	}
	return res, nil
}
