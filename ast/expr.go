package ast

import (
	"fmt"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/tokenizer"
)

// ParseExpr tokenizes a bare SQL expression fragment (a WHERE/ON/HAVING
// predicate, not a full statement) into a RawExprNode, splicing in a
// PlaceholderNode wherever a placeholder token appears. The Builder
// Layer's predicate helpers use this for the raw-string form of where()/
// having()/on().
func ParseExpr(text string) (*RawExprNode, error) {
	toks, err := tokenizer.NewSqlTokenizer(text).AllTokens()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrParse, err)
	}

	return buildRawExpr(toks), nil
}
