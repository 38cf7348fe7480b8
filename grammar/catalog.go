// grammar/catalog.go
package grammar

import "fmt"

// TokenKind is the slot type of a token specification.
type TokenKind int

const (
	TokSyntax TokenKind = iota
	TokIdentifier
	TokDeclIdent
	TokExpression
	TokScopeStart
	TokScopeEnd
	TokArgs
	TokIndex
	TokString
)

func (k TokenKind) String() string {
	switch k {
	case TokSyntax:
		return "Syntax"
	case TokIdentifier:
		return "Identifier"
	case TokDeclIdent:
		return "DeclarationIdentifier"
	case TokExpression:
		return "Expression"
	case TokScopeStart:
		return "ScopeStart"
	case TokScopeEnd:
		return "ScopeEnd"
	case TokArgs:
		return "Args"
	case TokIndex:
		return "Index"
	case TokString:
		return "String"
	}
	return fmt.Sprintf("Token(%d)", int(k))
}

// GroupRule is the multiplicity rule of a token group.
type GroupRule int

const (
	// GroupAll requires every token, in order.
	GroupAll GroupRule = iota
	// GroupAny matches each token at most once, in order, skipping misses.
	GroupAny
	// GroupExactlyOne requires one of the specs.
	GroupExactlyOne
)

// TokenSpec is a literal or a typed slot.
type TokenSpec struct {
	Kind    TokenKind
	Literal string
}

// Group is an ordered set of specs with a multiplicity rule.
type Group struct {
	Specs    []TokenSpec
	Rule     GroupRule
	Adjacent bool // no whitespace allowed before the group
	Optional bool
}

// Template declares one statement form.
type Template struct {
	Kind   StatementKind
	Prefix string
	Opens  bool
	Closes bool
	Scope  ScopeKind
	Groups []Group
}

// Catalog is an ordered list of templates; earlier templates win.
type Catalog struct {
	templates []Template
}

func NewCatalog() *Catalog { return &Catalog{} }

// Add appends t and returns the catalog for chaining.
func (c *Catalog) Add(t Template) *Catalog {
	c.templates = append(c.templates, t)
	return c
}

func (c *Catalog) Templates() []Template { return c.templates }

// token helpers keep the catalog below readable

func lit(s string) TokenSpec       { return TokenSpec{Kind: TokSyntax, Literal: s} }
func slot(k TokenKind) TokenSpec   { return TokenSpec{Kind: k} }
func all(specs ...TokenSpec) Group { return Group{Specs: specs, Rule: GroupAll} }
func one(specs ...TokenSpec) Group { return Group{Specs: specs, Rule: GroupExactlyOne} }
func opt(g Group) Group            { g.Optional = true; return g }
func adj(g Group) Group            { g.Adjacent = true; return g }
func kw(s string) Group            { return all(lit(s)) }

var (
	scopeStart = all(TokenSpec{Kind: TokScopeStart, Literal: ":"})
	scopeEnd   = all(TokenSpec{Kind: TokScopeEnd, Literal: ";"})
	semicolon  = kw(";")
)

// DefaultCatalog builds the statement grammar.
func DefaultCatalog() *Catalog {
	return NewCatalog().
		Add(Template{Kind: StmtScopeClose, Prefix: ";", Closes: true, Groups: []Group{scopeEnd}}).
		Add(Template{Kind: StmtDirective, Prefix: "#", Groups: []Group{
			kw("#"), all(slot(TokDeclIdent)), all(slot(TokExpression)), semicolon}}).
		Add(Template{Kind: StmtDeclare, Prefix: "$", Groups: []Group{
			kw("$"),
			adj(opt(one(lit("?"), lit("!")))),
			adj(all(slot(TokDeclIdent))),
			opt(all(lit("="), slot(TokExpression))),
			semicolon}}).
		Add(Template{Kind: StmtIf, Prefix: "if", Opens: true, Scope: ScopeIf, Groups: []Group{
			kw("if"), all(slot(TokExpression)), scopeStart}}).
		Add(Template{Kind: StmtElseIf, Prefix: "elif", Opens: true, Closes: true, Scope: ScopeIf, Groups: []Group{
			kw("elif"), all(slot(TokExpression)), scopeStart}}).
		Add(Template{Kind: StmtElse, Prefix: "else", Opens: true, Closes: true, Scope: ScopeElse, Groups: []Group{
			kw("else"), scopeStart}}).
		Add(Template{Kind: StmtWhile, Prefix: "while", Opens: true, Scope: ScopeLoop, Groups: []Group{
			kw("while"), all(slot(TokExpression)), scopeStart}}).
		Add(Template{Kind: StmtBreak, Prefix: "break", Groups: []Group{kw("break"), semicolon}}).
		Add(Template{Kind: StmtContinue, Prefix: "continue", Groups: []Group{kw("continue"), semicolon}}).
		Add(Template{Kind: StmtFunction, Prefix: "func", Opens: true, Scope: ScopeFunction, Groups: []Group{
			kw("func"),
			all(slot(TokDeclIdent)),
			adj(all(slot(TokArgs))),
			opt(all(lit("->"), slot(TokDeclIdent))),
			scopeStart}}).
		Add(Template{Kind: StmtReturn, Prefix: "return", Groups: []Group{
			kw("return"), opt(all(slot(TokExpression))), semicolon}}).
		Add(Template{Kind: StmtClass, Prefix: "class", Opens: true, Scope: ScopeClass, Groups: []Group{
			kw("class"), all(slot(TokDeclIdent)), scopeStart}}).
		Add(Template{Kind: StmtTry, Prefix: "try", Opens: true, Scope: ScopeTry, Groups: []Group{
			kw("try"), scopeStart}}).
		Add(Template{Kind: StmtCatch, Prefix: "catch", Opens: true, Closes: true, Scope: ScopeCatch, Groups: []Group{
			kw("catch"), opt(all(slot(TokDeclIdent))), scopeStart}}).
		Add(Template{Kind: StmtBlock, Prefix: "do", Opens: true, Scope: ScopeGeneric, Groups: []Group{
			kw("do"), scopeStart}}).
		Add(Template{Kind: StmtAcquireOnce, Prefix: "acquires", Groups: []Group{
			kw("acquires"), all(slot(TokIdentifier)), semicolon}}).
		Add(Template{Kind: StmtAcquire, Prefix: "acquire", Groups: []Group{
			kw("acquire"), all(slot(TokIdentifier)), semicolon}}).
		Add(Template{Kind: StmtRelease, Prefix: "release", Groups: []Group{
			kw("release"), all(slot(TokIdentifier)), semicolon}}).
		Add(Template{Kind: StmtRaise, Prefix: "raise", Groups: []Group{
			kw("raise"), all(slot(TokDeclIdent)), all(slot(TokString)), semicolon}}).
		Add(Template{Kind: StmtRethrow, Prefix: "raise", Groups: []Group{
			kw("raise"), all(slot(TokExpression)), semicolon}}).
		Add(Template{Kind: StmtAssert, Prefix: "assert", Groups: []Group{
			kw("assert"), all(slot(TokExpression)), opt(all(lit(","), slot(TokExpression))), semicolon}}).
		Add(Template{Kind: StmtExit, Prefix: "exit", Groups: []Group{kw("exit"), semicolon}}).
		Add(Template{Kind: StmtClear, Prefix: "clear", Groups: []Group{
			kw("clear"), all(slot(TokIdentifier)), semicolon}}).
		Add(Template{Kind: StmtCompound, Groups: []Group{
			all(slot(TokIdentifier)),
			one(lit("+="), lit("-="), lit("*="), lit("/=")),
			all(slot(TokExpression)),
			semicolon}}).
		Add(Template{Kind: StmtIndexAssign, Groups: []Group{
			all(slot(TokIdentifier)), adj(all(slot(TokIndex))), all(lit("="), slot(TokExpression)), semicolon}}).
		Add(Template{Kind: StmtAssign, Groups: []Group{
			all(slot(TokIdentifier)), all(lit("="), slot(TokExpression)), semicolon}}).
		Add(Template{Kind: StmtCall, Groups: []Group{
			all(slot(TokIdentifier)), adj(all(slot(TokArgs))), semicolon}})
}
