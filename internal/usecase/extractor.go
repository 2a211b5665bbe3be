package usecase

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// DefaultMaxSearchDepth bounds the symbol search. It exists purely as a
// circuit-breaker against degenerate trees; feed UIs put the author
// label well above this depth.
const DefaultMaxSearchDepth = 20

// AuthorExtractor derives an identity string for the content currently
// on screen from a matched rule and a UI tree snapshot. The identity is
// used only for distinctness counting and is never displayed.
type AuthorExtractor struct {
	logger   *zap.Logger
	maxDepth int
	now      func() time.Time
}

// NewAuthorExtractor creates an extractor with the default depth bound.
func NewAuthorExtractor(logger *zap.Logger) *AuthorExtractor {
	return &AuthorExtractor{
		logger:   logger,
		maxDepth: DefaultMaxSearchDepth,
		now:      time.Now,
	}
}

// Extract returns the identity for the current item, or empty when the
// rule's strategy yields nothing. Strategies in priority order:
// element-id lookup, symbol search, wall-clock fallback. With the
// fallback every event counts as a new identity, so the threshold
// degrades to a raw event counter; this is documented behavior for
// rules lacking both an element id and a symbol.
func (x *AuthorExtractor) Extract(rule *domain.GuardRule, tree domain.UITree) string {
	if tree == nil {
		return ""
	}

	switch {
	case rule.HasElementID():
		return x.extractByElementID(rule.ElementID, tree)
	case rule.UseSymbolMatch && rule.Symbol != "":
		return x.searchSymbol(rule.Symbol, tree)
	default:
		return x.clockToken()
	}
}

func (x *AuthorExtractor) extractByElementID(elementID string, tree domain.UITree) string {
	nodes, err := tree.FindByElementID(elementID)
	if err != nil {
		x.logger.Debug("element-id lookup failed",
			zap.String("element_id", elementID),
			zap.Error(err))
		return ""
	}
	if len(nodes) == 0 {
		return ""
	}
	text, err := nodes[0].Text()
	if err != nil {
		x.logger.Debug("node text read failed", zap.Error(err))
		return ""
	}
	return text
}

// searchSymbol walks the tree level by level looking for a node whose
// text or element id contains the symbol. Level order, not depth-first:
// shallow matches are both cheaper and more likely given how feed UIs
// are assembled, and the walk stops at the first match. Node access
// failures are tolerated per node.
func (x *AuthorExtractor) searchSymbol(symbol string, tree domain.UITree) string {
	root, err := tree.Root()
	if err != nil || root == nil {
		x.logger.Debug("tree root unavailable", zap.Error(err))
		return ""
	}

	if id, ok := x.checkNode(root, symbol); ok {
		return id
	}

	level := []domain.UINode{root}
	for depth := 0; depth < x.maxDepth && len(level) > 0; depth++ {
		var next []domain.UINode
		for _, node := range level {
			children, err := node.Children()
			if err != nil {
				x.logger.Debug("node children read failed", zap.Error(err))
				continue
			}
			for _, child := range children {
				if child == nil {
					continue
				}
				if id, ok := x.checkNode(child, symbol); ok {
					return id
				}
				next = append(next, child)
			}
		}
		level = next
	}
	return ""
}

// checkNode reports whether the node carries the symbol, and the
// identity derived from it. An element-id hit with no readable text
// yields a clock token: still useful as a once-per-view unique marker.
func (x *AuthorExtractor) checkNode(node domain.UINode, symbol string) (string, bool) {
	text, err := node.Text()
	if err != nil {
		x.logger.Debug("node text read failed", zap.Error(err))
		text = ""
	} else if text != "" && strings.Contains(text, symbol) {
		return text, true
	}

	elementID, err := node.ElementID()
	if err != nil {
		x.logger.Debug("node element-id read failed", zap.Error(err))
		return "", false
	}
	if elementID != "" && strings.Contains(elementID, symbol) {
		if text != "" {
			return text, true
		}
		return x.clockToken(), true
	}
	return "", false
}

func (x *AuthorExtractor) clockToken() string {
	return strconv.FormatInt(x.now().UnixNano(), 10)
}
