package index

import (
	b64 "encoding/base64"
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/xssnick/tonutils-go/address"
)

// Parsing
func HashConverter(value string) reflect.Value {
	if h, ok := parseHash(value); ok {
		return reflect.ValueOf(h)
	}
	return reflect.Value{}
}

func AccountAddressConverter(value string) reflect.Value {
	if a, ok := parseAccountAddress(value); ok {
		return reflect.ValueOf(a)
	}
	return reflect.Value{}
}

// parseHash accepts hex (optionally 0x-prefixed), base64 and base64url hashes
// and returns the standard base64 form used by the index.
func parseHash(value string) (HashType, bool) {
	if len(value) == 64 || len(value) == 66 && strings.HasPrefix(value, "0x") {
		value = strings.TrimPrefix(value, "0x")
		if res, err := hex.DecodeString(value); err == nil {
			return HashType(b64.StdEncoding.EncodeToString(res)), true
		}
		return "", false
	}
	if len(value) == 44 {
		if res, err := b64.StdEncoding.DecodeString(value); err == nil {
			return HashType(b64.StdEncoding.EncodeToString(res)), true
		} else if res, err := b64.URLEncoding.DecodeString(value); err == nil {
			return HashType(b64.StdEncoding.EncodeToString(res)), true
		}
	}
	return "", false
}

func parseAccountAddress(value string) (AccountAddress, bool) {
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
		return "", false
	}
	addr_str := fmt.Sprintf("%d:%s", addr.Workchain(), strings.ToUpper(hex.EncodeToString(addr.Data())))
	return AccountAddress(addr_str), true
}

// query to model
func ScanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.TxHash, &m.TxLt, &m.MsgHash, &m.Direction, &m.Source, &m.Destination,
		&m.CreatedLt, &m.Bounced, &m.BodyHash, &m.InitStateHash)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func ScanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.Hash, &t.Lt, &t.Account, &t.Aborted,
		&t.ComputeSkipped, &t.ComputeSuccess, &t.ComputeExitCode,
		&t.ActionSuccess, &t.ActionResultCode)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func ScanMessageContent(row pgx.Row) (*MessageContent, error) {
	var mc MessageContent
	err := row.Scan(&mc.Hash, &mc.Body)
	if err != nil {
		return nil, err
	}
	return &mc, nil
}
