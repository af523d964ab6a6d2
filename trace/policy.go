package trace

import (
	"slices"
)

// AnyContract is the per-contract key whose codes apply to every address.
const AnyContract = "any"

type CodeList struct {
	Compute []int32 `json:"compute" yaml:"compute"`
	Action  []int32 `json:"action" yaml:"action"`
}

func (l CodeList) Has(phase Phase, code int32) bool {
	switch phase {
	case PhaseCompute:
		return slices.Contains(l.Compute, code)
	case PhaseAction:
		return slices.Contains(l.Action, code)
	}
	return false
}

func (l CodeList) IsEmpty() bool {
	return len(l.Compute) == 0 && len(l.Action) == 0
}

func (l CodeList) union(o CodeList) CodeList {
	return CodeList{
		Compute: unionCodes(l.Compute, o.Compute),
		Action:  unionCodes(l.Action, o.Action),
	}
}

func (l CodeList) without(o CodeList) CodeList {
	return CodeList{
		Compute: removeCodes(l.Compute, o.Compute),
		Action:  removeCodes(l.Action, o.Action),
	}
}

// AllowedCodes lists exit codes that are expected and must not be reported as
// failures: globally, per contract address, and under the AnyContract key.
// The zero value allows nothing.
type AllowedCodes struct {
	CodeList  `yaml:",inline"`
	Contracts map[string]CodeList `json:"contracts,omitempty" yaml:"contracts,omitempty"`
}

// ForAddress returns the effective codes for a destination: the union of the
// global list, the address entry and the AnyContract entry. Any one of them is
// sufficient for a code to be ignored.
func (a AllowedCodes) ForAddress(addr string) CodeList {
	res := a.CodeList.union(CodeList{})
	if c, ok := a.Contracts[addr]; ok && addr != "" {
		res = res.union(c)
	}
	if c, ok := a.Contracts[AnyContract]; ok {
		res = res.union(c)
	}
	return res
}

func (a AllowedCodes) IsAllowed(phase Phase, code int32, addr string) bool {
	return a.ForAddress(addr).Has(phase, code)
}

func (a AllowedCodes) Clone() AllowedCodes {
	res := AllowedCodes{CodeList: a.CodeList.union(CodeList{})}
	if len(a.Contracts) > 0 {
		res.Contracts = make(map[string]CodeList, len(a.Contracts))
		for k, v := range a.Contracts {
			res.Contracts[k] = v.union(CodeList{})
		}
	}
	return res
}

// Merge returns the union of both policies.
func (a AllowedCodes) Merge(o AllowedCodes) AllowedCodes {
	res := a.Clone()
	res.CodeList = res.CodeList.union(o.CodeList)
	for k, v := range o.Contracts {
		if res.Contracts == nil {
			res.Contracts = make(map[string]CodeList)
		}
		res.Contracts[k] = res.Contracts[k].union(v)
	}
	return res
}

// Remove returns a copy without the codes listed in o. Contract entries left
// empty are dropped.
func (a AllowedCodes) Remove(o AllowedCodes) AllowedCodes {
	res := a.Clone()
	res.CodeList = res.CodeList.without(o.CodeList)
	for k, v := range o.Contracts {
		c, ok := res.Contracts[k]
		if !ok {
			continue
		}
		c = c.without(v)
		if c.IsEmpty() {
			delete(res.Contracts, k)
		} else {
			res.Contracts[k] = c
		}
	}
	return res
}

// NormalizeAddresses rewrites contract keys into raw form. The AnyContract key
// is kept as is.
func (a AllowedCodes) NormalizeAddresses() (AllowedCodes, error) {
	res := AllowedCodes{CodeList: a.CodeList}
	for k, v := range a.Contracts {
		key := k
		if k != AnyContract {
			norm, err := NormalizeAddress(k)
			if err != nil {
				return AllowedCodes{}, err
			}
			key = norm
		}
		if res.Contracts == nil {
			res.Contracts = make(map[string]CodeList)
		}
		res.Contracts[key] = res.Contracts[key].union(v)
	}
	return res, nil
}

func unionCodes(a, b []int32) []int32 {
	res := make([]int32, 0, len(a)+len(b))
	for _, src := range [][]int32{a, b} {
		for _, c := range src {
			if !slices.Contains(res, c) {
				res = append(res, c)
			}
		}
	}
	return res
}

func removeCodes(a, b []int32) []int32 {
	res := make([]int32, 0, len(a))
	for _, c := range a {
		if !slices.Contains(b, c) {
			res = append(res, c)
		}
	}
	return res
}
