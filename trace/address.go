package trace

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
)

// DefaultConsoleAddress is the locklift console contract. Messages to it only
// carry debug output.
const DefaultConsoleAddress = "0:B5E9240FC2D2F1FF8CBB1D1DEE7FB7CAE155E5F6320E585FCC685698994A19A5"

// NormalizeAddress accepts user-friendly (base64 or base64url) and raw
// addresses and returns the raw upper-case form.
func NormalizeAddress(value string) (string, error) {
	value = strings.TrimSpace(value)
	addr, err := address.ParseAddr(value)
	if err != nil {
		value_url := strings.Replace(value, "+", "-", -1)
		value_url = strings.Replace(value_url, "/", "_", -1)
		addr, err = address.ParseAddr(value_url)
	}
	if err != nil {
		addr, err = address.ParseRawAddr(value)
	}
	if err != nil {
		return "", fmt.Errorf("invalid address '%s': %w", value, err)
	}
	return fmt.Sprintf("%d:%s", addr.Workchain(), strings.ToUpper(hex.EncodeToString(addr.Data()))), nil
}
