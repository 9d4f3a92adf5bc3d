package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into rules and group rules, producing rule
// text in the same normalized form a browser reports through cssText.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed, it becomes
// stylesheet Href and is used for debug logging.
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Items:    make([]StylesheetItem, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		sheet.Href = source[0]
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	sheet.Items = p.parseItems(parser, sheet, 0)
	return sheet
}

// parseItems parses rules until end of input or, when nested, until the end
// of enclosing group rule.
func (p *Parser) parseItems(parser *css.Parser, sheet *Stylesheet, depth int) []StylesheetItem {
	items := make([]StylesheetItem, 0)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if p.recoverable(parser, sheet) {
				continue
			}
			return items

		case css.EndAtRuleGrammar:
			if depth > 0 {
				return items
			}

		case css.BeginAtRuleGrammar:
			atRule := strings.ToLower(string(data))
			switch atRule {
			case "@media", "@supports", "@layer", "@container", "@document", "@-moz-document", "@scope", "@starting-style":
				prelude := atRule
				if cond := joinTokens(parser.Values(), false); cond != "" {
					prelude += " " + cond
				}
				group := &Group{Prelude: prelude}
				group.Items = p.parseItems(parser, sheet, depth+1)
				p.log.Debug("Parsed group rule", zap.String("prelude", prelude), zap.Int("items", len(group.Items)))
				items = append(items, StylesheetItem{Group: group})
			default:
				// @font-face, @keyframes, @page and the like carry no class rules
				p.skipAtRuleBlock(parser)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g., @import)
			atRule := strings.ToLower(string(data))
			if atRule == "@import" {
				url := extractImportURL(parser.Values())
				if url != "" {
					items = append(items, StylesheetItem{Import: &url})
					p.log.Debug("Parsed @import", zap.String("url", url))
				}
			} else {
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.BeginRulesetGrammar:
			selector := p.parseSelector(data, parser.Values())
			decls := p.parseDeclarations(parser, sheet)
			if selector == "" {
				sheet.Warnings = append(sheet.Warnings, "rule without selector skipped")
				continue
			}
			items = append(items, StylesheetItem{Rule: &Rule{
				Selector: selector,
				Text:     ruleText(selector, decls),
			}})

		case css.QualifiedRuleGrammar:
			// Part of selector list split by the grammar, the rest arrives
			// with BeginRulesetGrammar. Comma grouped lists are kept together.
			p.log.Debug("Unexpected qualified rule", zap.ByteString("data", data))
		}
	}
}

// recoverable reports whether parsing may continue after ErrorGrammar.
// Syntax errors are recorded as warnings, end of input stops parsing.
func (p *Parser) recoverable(parser *css.Parser, sheet *Stylesheet) bool {
	err := parser.Err()
	if err == nil || errors.Is(err, io.EOF) {
		return false
	}
	var perr *parse.Error
	if errors.As(err, &perr) {
		sheet.Warnings = append(sheet.Warnings, "syntax error: "+perr.Message)
		p.log.Debug("CSS parse error", zap.Error(err))
		return true
	}
	sheet.Warnings = append(sheet.Warnings, "unable to read css: "+err.Error())
	p.log.Debug("CSS read error", zap.Error(err))
	return false
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			// url(something) - the token data is the full url(...) string
			s := string(t.Data)
			s = strings.TrimPrefix(s, "url(")
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

// parseSelector builds normalized selector list text from token data.
func (p *Parser) parseSelector(data []byte, values []css.Token) string {
	tokens := make([]css.Token, 0, len(values)+1)
	if len(data) > 0 && !bytes.Equal(data, []byte("{")) {
		tokens = append(tokens, css.Token{TokenType: css.IdentToken, Data: data})
	}
	tokens = append(tokens, values...)
	return joinTokens(tokens, true)
}

// declaration is a single property: value pair in source order.
type declaration struct {
	name  string
	value string
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
// Custom properties are kept, nested rules are skipped.
func (p *Parser) parseDeclarations(parser *css.Parser, sheet *Stylesheet) []declaration {
	var decls []declaration

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if p.recoverable(parser, sheet) {
				continue
			}
			return decls

		case css.EndRulesetGrammar:
			return decls

		case css.DeclarationGrammar:
			value := joinTokens(parser.Values(), false)
			if value == "" {
				continue
			}
			decls = append(decls, declaration{name: strings.ToLower(string(data)), value: value})

		case css.CustomPropertyGrammar:
			value := joinTokens(parser.Values(), false)
			decls = append(decls, declaration{name: string(data), value: value})

		case css.BeginRulesetGrammar, css.BeginAtRuleGrammar:
			sheet.Warnings = append(sheet.Warnings, "nested rule skipped")
			p.skipAtRuleBlock(parser)
		}
	}
}

// ruleText renders rule the way CSSOM serializes it:
// "selector { name: value; name: value; }".
func ruleText(selector string, decls []declaration) string {
	var sb strings.Builder
	sb.WriteString(selector)
	sb.WriteString(" {")
	for _, d := range decls {
		sb.WriteString(" ")
		sb.WriteString(d.name)
		sb.WriteString(":")
		if d.value != "" {
			sb.WriteString(" ")
			sb.WriteString(d.value)
		}
		sb.WriteString(";")
	}
	sb.WriteString(" }")
	return sb.String()
}

// joinTokens concatenates token data collapsing whitespace runs into single
// space and trimming both ends. With lists set, commas are normalized to
// ", " which is how selector lists are serialized.
func joinTokens(tokens []css.Token, lists bool) string {
	var sb strings.Builder
	pendingSpace := false
	for _, t := range tokens {
		switch {
		case t.TokenType == css.WhitespaceToken:
			pendingSpace = true
			continue
		case t.TokenType == css.CommentToken:
			continue
		case lists && t.TokenType == css.CommaToken:
			sb.WriteString(",")
			pendingSpace = true
			continue
		}
		if pendingSpace && sb.Len() > 0 {
			sb.WriteString(" ")
		}
		pendingSpace = false
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if errors.Is(parser.Err(), io.EOF) || parser.Err() == nil {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
