package utils

import (
	"errors"
	"net"
	"strings"
	"unicode"

	"github.com/octopus-network/oct-faucet-server/chaincfg"
	"github.com/octopus-network/oct-faucet-server/constdef"
)

func IsBlank(str string) bool {
	if str == "" {
		return true
	}

	for _, c := range str {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}

// CheckAccountValidity checks whether the given account id meets the NEAR
// named account requirements and carries the suffix of the active network.
func CheckAccountValidity(account string, chainParams *chaincfg.Params) error {
	if len(account) < constdef.MinAccountLength || len(account) > constdef.MaxAccountLength {
		return errors.New("the length of account is incorrect")
	}

	if !strings.HasSuffix(account, chainParams.AccountSuffix) {
		return errors.New("account does not belong to the active network")
	}

	prev := byte('.')
	for i := 0; i < len(account); i++ {
		c := account[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prev = c
		case c == '.' || c == '_' || c == '-':
			if prev == '.' || prev == '_' || prev == '-' {
				return errors.New("account contains consecutive or leading separators")
			}
			prev = c
		default:
			return errors.New("account contains an invalid character")
		}
	}
	if prev == '.' || prev == '_' || prev == '-' {
		return errors.New("account ends with a separator")
	}
	return nil
}

// NormalizeAddress returns addr with the passed default port appended if
// there is not already a port specified.
func NormalizeAddress(addr, defaultPort string) (string, error) {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		ret := net.JoinHostPort(addr, defaultPort)
		_, _, err = net.SplitHostPort(ret)
		if err != nil {
			return "", err
		}
		return ret, nil
	}
	return addr, nil
}
