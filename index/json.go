package index

import (
	"fmt"
)

// Methods
func (h *HashType) UnmarshalText(data []byte) error {
	res, ok := parseHash(string(data))
	if !ok {
		return IndexError{Code: 422, Message: fmt.Sprintf("invalid hash: %s", data)}
	}
	*h = res
	return nil
}

func (a *AccountAddress) UnmarshalText(data []byte) error {
	res, ok := parseAccountAddress(string(data))
	if !ok {
		return IndexError{Code: 422, Message: fmt.Sprintf("invalid address: %s", data)}
	}
	*a = res
	return nil
}

func (a AccountAddress) String() string {
	return string(a)
}
