package synapse

import (
	"fmt"
	"sort"
)

// ValidateName checks that name can address a synapse on the server.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	return nil
}

// ValidateParams checks that parameter names are non-empty and unique.
func ValidateParams(params []Param) error {
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		if p.Name == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidParam)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: duplicate %q", ErrInvalidParam, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// NewGenericSignal builds a GenericSignal from a parameter map, sorted by
// parameter name.
func NewGenericSignal(name string, values map[string]any) GenericSignal {
	params := make([]Param, 0, len(values))
	for k, v := range values {
		params = append(params, Param{Name: k, Value: v})
	}
	sortParams(params)
	return GenericSignal{Name: name, Parameters: params}
}

func sortParams(params []Param) {
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
}
