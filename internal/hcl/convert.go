package hcl

import (
	"fmt"

	"github.com/specialistvlad/helpme/internal/helpdb"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// valueFromCty converts an evaluated HCL value into a help value.
func valueFromCty(val cty.Value) (helpdb.Value, error) {
	if !val.IsKnown() {
		return helpdb.Value{}, fmt.Errorf("value is not known")
	}
	if val.IsNull() {
		return helpdb.Value{}, fmt.Errorf("null values are not allowed")
	}

	ty := val.Type()
	switch {
	case ty.Equals(cty.String):
		return helpdb.Text(val.AsString()), nil

	case ty.Equals(cty.Number), ty.Equals(cty.Bool):
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return helpdb.Value{}, err
		}
		return helpdb.Text(str.AsString()), nil

	case ty.IsObjectType(), ty.IsMapType():
		table := make(helpdb.Table)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			inner, err := valueFromCty(v)
			if err != nil {
				return helpdb.Value{}, fmt.Errorf("key %q: %w", k.AsString(), err)
			}
			table[k.AsString()] = inner
		}
		return helpdb.Nested(table), nil

	default:
		return helpdb.Value{}, fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}
