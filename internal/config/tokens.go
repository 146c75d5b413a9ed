package config

import (
	"fmt"
	"os"

	"dex-sentinel/internal/domain"

	"gopkg.in/yaml.v3"
)

type tokensFile struct {
	Tokens []domain.TrackedToken `yaml:"tokens"`
}

// LoadTokensFile reads a YAML document of the form:
//
//	tokens:
//	  - chain_id: solana
//	    token_address: So11111111111111111111111111111111111111112
//
// Entries without a chain id default to solana; entries without an address are rejected.
func LoadTokensFile(path string) ([]domain.TrackedToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokens file: %w", err)
	}

	var doc tokensFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tokens file: %w", err)
	}

	out := make([]domain.TrackedToken, 0, len(doc.Tokens))
	for i, tok := range doc.Tokens {
		if tok.TokenAddress == "" {
			return nil, fmt.Errorf("tokens[%d]: token_address is required", i)
		}
		if tok.ChainID == "" {
			tok.ChainID = domain.DefaultChainID
		}
		out = append(out, tok)
	}
	return out, nil
}

// MergeTokens appends extra to base, skipping keys already present.
func MergeTokens(base, extra []domain.TrackedToken) []domain.TrackedToken {
	seen := make(map[domain.TokenKey]struct{}, len(base)+len(extra))
	out := make([]domain.TrackedToken, 0, len(base)+len(extra))
	for _, list := range [][]domain.TrackedToken{base, extra} {
		for _, tok := range list {
			if _, ok := seen[tok.Key()]; ok {
				continue
			}
			seen[tok.Key()] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}
