package profile

import "github.com/meshx/meshx-tools/internal/apperrors"

// Product returns the first product named name.
func (p *Profile) Product(name string) (*Product, error) {
	for i := range p.Prod.Products {
		if p.Prod.Products[i].Name == name {
			return &p.Prod.Products[i], nil
		}
	}
	return nil, apperrors.NewProductNotFoundError(name, p.ProductNames())
}

// ProductNames lists the products in declared order.
func (p *Profile) ProductNames() []string {
	names := make([]string, 0, len(p.Prod.Products))
	for _, prod := range p.Prod.Products {
		names = append(names, prod.Name)
	}
	return names
}

// Element looks up a catalog element by name.
func (p *Profile) Element(name string) (*ElementDef, bool) {
	for i := range p.Elements {
		if p.Elements[i].Name == name {
			return &p.Elements[i], true
		}
	}
	return nil, false
}

// MaxElementCount is one plus the sum of the product's direct element values.
func (prod *Product) MaxElementCount() int {
	count := 1
	for _, el := range prod.Elements {
		count += el.Value
	}
	return count
}
