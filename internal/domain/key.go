package domain

import (
	"fmt"
	"strings"
)

// DefaultChainID is used when a request does not name a chain.
const DefaultChainID = "solana"

// TokenKey identifies all per-token state: "{chain_id}-{token_address}".
type TokenKey string

func NewTokenKey(chainID, tokenAddress string) TokenKey {
	return TokenKey(fmt.Sprintf("%s-%s", chainID, tokenAddress))
}

func (k TokenKey) String() string {
	return string(k)
}

// FileName is the weekly snapshot file name for the key.
func (k TokenKey) FileName() string {
	return strings.ReplaceAll(string(k), "/", "_") + ".json"
}

// TrackedToken is a chain/address pair the monitor polls.
type TrackedToken struct {
	ChainID      string `json:"chain_id" yaml:"chain_id"`
	TokenAddress string `json:"token_address" yaml:"token_address"`
}

func (t TrackedToken) Key() TokenKey {
	return NewTokenKey(t.ChainID, t.TokenAddress)
}

// ParseTrackedToken parses "chain:address". A bare address uses DefaultChainID.
func ParseTrackedToken(s string) (TrackedToken, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TrackedToken{}, fmt.Errorf("empty token reference")
	}
	chain, addr, found := strings.Cut(s, ":")
	if !found {
		return TrackedToken{ChainID: DefaultChainID, TokenAddress: s}, nil
	}
	chain, addr = strings.TrimSpace(chain), strings.TrimSpace(addr)
	if chain == "" || addr == "" {
		return TrackedToken{}, fmt.Errorf("invalid token reference %q", s)
	}
	return TrackedToken{ChainID: chain, TokenAddress: addr}, nil
}
