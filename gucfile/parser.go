package gucfile

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultMaxIncludeDepth is the include-nesting bound: a chain of 10
// files may include one another; an 11th include fails.
const DefaultMaxIncludeDepth = 10

// ParseOptions configures a Parse call. Fs defaults to the real OS
// filesystem; tests substitute an in-memory afero.Fs so the parser's
// include-resolution and depth-bound logic can be exercised without
// touching disk.
type ParseOptions struct {
	Fs              afero.Fs
	DataDir         string
	MaxIncludeDepth int
}

// Parse reads path (and recursively, any files it includes) and returns the
// resulting AssignmentList, or the first error encountered; on failure
// whatever was accumulated is discarded.
func Parse(path string, opts ParseOptions) (*AssignmentList, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	maxDepth := opts.MaxIncludeDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxIncludeDepth
	}
	root, err := resolvePath(path, "", opts.DataDir)
	if err != nil {
		return nil, err
	}
	p := &parserState{fs: fs, dataDir: opts.DataDir, maxDepth: maxDepth, list: NewAssignmentList()}
	if err := p.parseFile(root, 1, "", 0); err != nil {
		return nil, err
	}
	return p.list, nil
}

// resolvePath resolves a possibly-relative include path against the
// including file's directory, or against dataDir when there is no
// including file (the root file itself).
func resolvePath(path, callingFile, dataDir string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	base := dataDir
	if callingFile != "" {
		base = filepath.Dir(callingFile)
	}
	if base == "" {
		base = "."
	}
	return filepath.Clean(filepath.Join(base, path)), nil
}

type parserState struct {
	fs       afero.Fs
	dataDir  string
	maxDepth int
	list     *AssignmentList
}

// parseFile runs the line loop over one file. depth is this
// file's position in the include chain (the root file is depth 1).
// callerFile/callerLine identify the include directive that reached this
// file, used only to report a depth-exceeded error at the right location.
func (p *parserState) parseFile(path string, depth int, callerFile string, callerLine int) error {
	if depth > p.maxDepth {
		return newIncludeDepthError(callerFile, callerLine, p.maxDepth)
	}
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return newFileAccessError(path, err)
	}
	lex := NewLexer(data)
	for {
		tok := lex.NextToken()
		switch tok.Type {
		case TokenEOF:
			return nil
		case TokenEOL:
			continue // blank line
		}
		name, nameLine, err := expectName(tok, path)
		if err != nil {
			return err
		}
		tok = lex.NextToken()
		if tok.Type == TokenEquals {
			tok = lex.NextToken()
		}
		value, err := expectValue(tok, path)
		if err != nil {
			return err
		}
		tok = lex.NextToken()
		if tok.Type != TokenEOL && tok.Type != TokenEOF {
			return newSyntaxError(path, tok.Line, "expected end of line, found %s %q", tok.Type, tok.Text)
		}
		atEOF := tok.Type == TokenEOF

		if err := p.dispatch(name, value, path, nameLine, depth); err != nil {
			return err
		}
		if atEOF {
			return nil
		}
	}
}

// dispatch routes one decoded assignment: include recursion, whitelist
// head replacement, or plain append.
func (p *parserState) dispatch(name, value, path string, line, depth int) error {
	switch {
	case strings.EqualFold(name, IncludeDirective):
		childPath, err := resolvePath(value, path, p.dataDir)
		if err != nil {
			return err
		}
		return p.parseFile(childPath, depth+1, path, line)
	case strings.EqualFold(name, ClassWhitelistSetting):
		p.list.SetClassWhitelist(&Assignment{Name: name, Value: value, Filename: path, SourceLine: line})
	default:
		p.list.Append(&Assignment{Name: name, Value: value, Filename: path, SourceLine: line})
	}
	return nil
}

// expectName validates the token that should open a logical line: an ID
// or QUALIFIED_ID.
func expectName(tok Token, path string) (name string, line int, err error) {
	switch tok.Type {
	case TokenID, TokenQualifiedID:
		return tok.Text, tok.Line, nil
	case TokenError:
		return "", 0, newSyntaxError(path, tok.Line, "%s", tok.Text)
	default:
		return "", 0, newSyntaxError(path, tok.Line, "expected a parameter name, found %s %q", tok.Type, tok.Text)
	}
}

// expectValue validates and decodes the single value token of a logical
// line: ID, STRING, INTEGER, REAL or UNQUOTED_STRING.
func expectValue(tok Token, path string) (string, error) {
	switch tok.Type {
	case TokenString:
		return DecodeString(tok.Text), nil
	case TokenID, TokenInteger, TokenReal, TokenUnquotedString:
		return tok.Text, nil
	case TokenError:
		return "", newSyntaxError(path, tok.Line, "%s", tok.Text)
	default:
		return "", newSyntaxError(path, tok.Line, "expected a parameter value, found %s %q", tok.Type, tok.Text)
	}
}
