// Package parser implements a Pratt (precedence-climbing) parser over the
// ElementaryJS token stream, producing the ast package's node set. It
// stands in for the external concrete parser spec.md §1 treats as a given
// collaborator; it is kept deliberately minimal — only as much grammar as
// the rewriter (C3) needs to see in order to do its job, including the
// forbidden constructs C3 must reject. Grounded on welle/internal/parser's
// prefix/infix function-table architecture.
package parser

import (
	"strings"

	"welle/internal/ast"
	"welle/internal/diag"
	"welle/internal/lexer"
	"welle/internal/numlit"
	"welle/internal/token"
)

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	accum  *diag.Accumulator

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

const (
	_ int = iota
	LOWEST
	COMMA       // ,  (sequence expressions)
	ASSIGN      // = += -= *= /= %= &= |= ^= <<= >>=
	CONDITIONAL // ?:
	LOGOR       // ||
	LOGAND      // &&
	BITOR       // |
	BITXOR      // ^
	BITAND      // &
	EQUALS      // === !== == !=
	RELATIONAL  // < <= > >= instanceof in
	SHIFT       // << >> >>>
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x ~x typeof x void x ++x --x
	POSTFIX     // x++ x--
	CALL        // fn(x), new x, o.x, o[x]
)

var precedences = map[token.Type]int{
	token.COMMA:      COMMA,
	token.ASSIGN:      ASSIGN,
	token.PLUS_EQ:     ASSIGN,
	token.MINUS_EQ:    ASSIGN,
	token.STAR_EQ:     ASSIGN,
	token.SLASH_EQ:    ASSIGN,
	token.PERCENT_EQ:  ASSIGN,
	token.AMP_EQ:      ASSIGN,
	token.PIPE_EQ:     ASSIGN,
	token.CARET_EQ:    ASSIGN,
	token.SHL_EQ:      ASSIGN,
	token.SHR_EQ:      ASSIGN,
	token.QUESTION:    CONDITIONAL,
	token.OR:          LOGOR,
	token.AND:         LOGAND,
	token.PIPE:        BITOR,
	token.CARET:       BITXOR,
	token.AMP:         BITAND,
	token.EQ:          EQUALS,
	token.NE:          EQUALS,
	token.LOOSE_EQ:    EQUALS,
	token.LOOSE_NE:    EQUALS,
	token.LT:          RELATIONAL,
	token.LE:          RELATIONAL,
	token.GT:          RELATIONAL,
	token.GE:          RELATIONAL,
	token.INSTANCEOF:  RELATIONAL,
	token.IN:          RELATIONAL,
	token.SHL:         SHIFT,
	token.SHR:         SHIFT,
	token.USHR:        SHIFT,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.STAR:        PRODUCT,
	token.SLASH:       PRODUCT,
	token.PERCENT:     PRODUCT,
	token.LPAREN:      CALL,
	token.DOT:         CALL,
	token.LBRACKET:    CALL,
	token.INC:         POSTFIX,
	token.DEC:         POSTFIX,
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:              l,
		accum:          diag.NewAccumulator(),
		prefixParseFns: map[token.Type]prefixParseFn{},
		infixParseFns:  map[token.Type]infixParseFn{},
	}

	p.nextToken()
	p.nextToken()

	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.UNDEFINED, p.parseUndefined)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.THIS, p.parseThisExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedOrArrow)
	p.registerPrefix(token.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(token.LBRACE, p.parseObjectLiteral)
	p.registerPrefix(token.FUNCTION, p.parseFunctionExpression)
	p.registerPrefix(token.NEW, p.parseNewExpression)
	p.registerPrefix(token.MINUS, p.parseUnaryExpression)
	p.registerPrefix(token.PLUS, p.parseUnaryExpression)
	p.registerPrefix(token.NOT, p.parseUnaryExpression)
	p.registerPrefix(token.TILDE, p.parseUnaryExpression)
	p.registerPrefix(token.TYPEOF, p.parseUnaryExpression)
	p.registerPrefix(token.DELETE, p.parseUnaryExpression)
	p.registerPrefix(token.VOID, p.parseUnaryExpression)
	p.registerPrefix(token.INC, p.parseUpdatePrefix)
	p.registerPrefix(token.DEC, p.parseUpdatePrefix)

	for _, tt := range []token.Type{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.EQ, token.NE, token.LOOSE_EQ, token.LOOSE_NE,
		token.LT, token.LE, token.GT, token.GE, token.INSTANCEOF, token.IN,
		token.AMP, token.PIPE, token.CARET, token.SHL, token.SHR, token.USHR,
	} {
		p.registerInfix(tt, p.parseBinaryExpression)
	}
	p.registerInfix(token.AND, p.parseLogicalExpression)
	p.registerInfix(token.OR, p.parseLogicalExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.DOT, p.parseMemberExpression)
	p.registerInfix(token.QUESTION, p.parseConditionalExpression)
	p.registerInfix(token.INC, p.parseUpdatePostfix)
	p.registerInfix(token.DEC, p.parseUpdatePostfix)
	for _, tt := range []token.Type{
		token.ASSIGN, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ,
		token.PERCENT_EQ, token.AMP_EQ, token.PIPE_EQ, token.CARET_EQ, token.SHL_EQ, token.SHR_EQ,
	} {
		p.registerInfix(tt, p.parseAssignmentExpression)
	}

	return p
}

func (p *Parser) Diagnostics() []diag.Diagnostic { return p.accum.Diagnostics() }

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expect(t token.Type) bool {
	if p.peekIs(t) {
		p.nextToken()
		return true
	}
	p.accum.Errorf(p.peekToken.Line, "expected %s, got %s", t, p.peekToken.Type)
	return false
}

func (p *Parser) skipSemi() {
	for p.curIs(token.SEMI) {
		p.nextToken()
	}
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

/* -------------------- program / statements -------------------- */

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	for !p.curIs(token.EOF) {
		if p.curIs(token.SEMI) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			program.Body = append(program.Body, stmt)
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LET, token.CONST, token.VAR:
		return p.parseVarDeclaration()
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		stmt := &ast.BreakStatement{LineNo: p.curToken.Line}
		if p.peekIs(token.SEMI) {
			p.nextToken()
		}
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{LineNo: p.curToken.Line}
		if p.peekIs(token.SEMI) {
			p.nextToken()
		}
		return stmt
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.WITH:
		return p.parseWithStatement()
	case token.FUNCTION:
		return p.parseFunctionDeclaration()
	case token.CLASS:
		return p.parseClassDeclaration()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseVarDeclaration() ast.Statement {
	line := p.curToken.Line
	kind := ast.VarKind(p.curToken.Literal)
	decl := &ast.VarDeclaration{LineNo: line, Kind: kind}
	for {
		if !p.expect(token.IDENT) {
			if p.peekIs(token.LBRACE) || p.peekIs(token.LBRACKET) {
				// destructuring target; record and bail out of this declarator list
				p.nextToken()
				p.skipBalanced()
				return &ast.DestructuringDeclaration{LineNo: line, Kind: kind}
			}
			return decl
		}
		name := &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
		d := &ast.VarDeclarator{LineNo: name.LineNo, Name: name}
		if p.peekIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			d.Init = p.parseExpression(ASSIGN)
		}
		decl.Declarations = append(decl.Declarations, d)
		if p.peekIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	if p.peekIs(token.SEMI) {
		p.nextToken()
	}
	return decl
}

// skipBalanced consumes a destructuring pattern ({...} or [...]) without
// building an AST for it; the rewriter only needs to know one was present.
func (p *Parser) skipBalanced() {
	open := p.curToken.Type
	closeTok := token.RBRACE
	if open == token.LBRACKET {
		closeTok = token.RBRACKET
	}
	depth := 1
	for depth > 0 && !p.curIs(token.EOF) {
		p.nextToken()
		if p.curIs(open) {
			depth++
		} else if p.curIs(closeTok) {
			depth--
		}
	}
	if p.peekIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		p.parseExpression(ASSIGN)
	}
	if p.peekIs(token.SEMI) {
		p.nextToken()
	}
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	line := p.curToken.Line
	expr := p.parseExpression(LOWEST)
	stmt := &ast.ExpressionStatement{LineNo: line, Expression: expr}
	if p.peekIs(token.SEMI) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{LineNo: p.curToken.Line}
	p.nextToken()
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		if p.curIs(token.SEMI) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Body = append(block.Body, stmt)
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseReturnStatement() ast.Statement {
	line := p.curToken.Line
	stmt := &ast.ReturnStatement{LineNo: line}
	if !p.peekIs(token.SEMI) && !p.peekIs(token.RBRACE) {
		p.nextToken()
		stmt.Argument = p.parseExpression(LOWEST)
	}
	if p.peekIs(token.SEMI) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	line := p.curToken.Line
	if !p.expect(token.LPAREN) {
		return nil
	}
	p.nextToken()
	test := p.parseExpression(LOWEST)
	if !p.expect(token.RPAREN) {
		return nil
	}
	if !p.expect(token.LBRACE) {
		return nil
	}
	cons := p.parseBlockStatement()
	stmt := &ast.IfStatement{LineNo: line, Test: test, Consequent: cons}
	if p.peekIs(token.ELSE) {
		p.nextToken()
		if p.peekIs(token.IF) {
			p.nextToken()
			stmt.Alternate = p.parseIfStatement()
		} else if p.expect(token.LBRACE) {
			stmt.Alternate = p.parseBlockStatement()
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	line := p.curToken.Line
	if !p.expect(token.LPAREN) {
		return nil
	}
	p.nextToken()
	test := p.parseExpression(LOWEST)
	if !p.expect(token.RPAREN) || !p.expect(token.LBRACE) {
		return nil
	}
	return &ast.WhileStatement{LineNo: line, Test: test, Body: p.parseBlockStatement()}
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	line := p.curToken.Line
	if !p.expect(token.LBRACE) {
		return nil
	}
	body := p.parseBlockStatement()
	if !p.expect(token.WHILE) || !p.expect(token.LPAREN) {
		return nil
	}
	p.nextToken()
	test := p.parseExpression(LOWEST)
	if !p.expect(token.RPAREN) {
		return nil
	}
	if p.peekIs(token.SEMI) {
		p.nextToken()
	}
	return &ast.DoWhileStatement{LineNo: line, Body: body, Test: test}
}

func (p *Parser) parseForStatement() ast.Statement {
	line := p.curToken.Line
	if !p.expect(token.LPAREN) {
		return nil
	}
	// Lookahead for for-in/for-of: `(` IDENT (in|of) ...
	if p.peekIs(token.LET) || p.peekIs(token.CONST) || p.peekIs(token.VAR) || p.peekIs(token.IDENT) {
		save := *p
		lexSave := *p.l
		p.nextToken()
		if p.curIs(token.LET) || p.curIs(token.CONST) || p.curIs(token.VAR) {
			p.nextToken()
		}
		if p.curIs(token.IDENT) {
			name := &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
			if p.peekIs(token.IN) || p.peekIs(token.OF) {
				isOf := p.peekIs(token.OF)
				p.nextToken()
				p.nextToken()
				right := p.parseExpression(LOWEST)
				if !p.expect(token.RPAREN) || !p.expect(token.LBRACE) {
					return nil
				}
				return &ast.ForInStatement{LineNo: line, Left: name, Right: right, IsOf: isOf, Body: p.parseBlockStatement()}
			}
		}
		*p = save
		*p.l = lexSave
	}

	var init ast.Statement
	p.nextToken()
	if p.curIs(token.LET) || p.curIs(token.CONST) || p.curIs(token.VAR) {
		init = p.parseVarDeclaration()
	} else if !p.curIs(token.SEMI) {
		initLine := p.curToken.Line
		expr := p.parseExpression(LOWEST)
		init = &ast.ExpressionStatement{LineNo: initLine, Expression: expr}
		if p.peekIs(token.SEMI) {
			p.nextToken()
		}
	}

	var test ast.Expression
	if !p.peekIs(token.SEMI) {
		p.nextToken()
		test = p.parseExpression(LOWEST)
	}
	if !p.expect(token.SEMI) {
		return nil
	}

	var update ast.Expression
	if !p.peekIs(token.RPAREN) {
		p.nextToken()
		update = p.parseExpression(LOWEST)
	}
	if !p.expect(token.RPAREN) || !p.expect(token.LBRACE) {
		return nil
	}
	return &ast.ForStatement{LineNo: line, Init: init, Test: test, Update: update, Body: p.parseBlockStatement()}
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	line := p.curToken.Line
	if !p.expect(token.LPAREN) {
		return nil
	}
	p.nextToken()
	disc := p.parseExpression(LOWEST)
	if !p.expect(token.RPAREN) || !p.expect(token.LBRACE) {
		return nil
	}
	p.nextToken()
	stmt := &ast.SwitchStatement{LineNo: line, Discriminant: disc}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		c := &ast.SwitchCase{LineNo: p.curToken.Line}
		if p.curIs(token.CASE) {
			p.nextToken()
			c.Test = p.parseExpression(LOWEST)
			if !p.expect(token.COLON) {
				return nil
			}
		} else if p.curIs(token.DEFAULT) {
			if !p.expect(token.COLON) {
				return nil
			}
		} else {
			p.accum.Errorf(p.curToken.Line, "expected case or default")
			return nil
		}
		body := &ast.BlockStatement{LineNo: c.LineNo}
		p.nextToken()
		for !p.curIs(token.CASE) && !p.curIs(token.DEFAULT) && !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			if p.curIs(token.SEMI) {
				p.nextToken()
				continue
			}
			s := p.parseStatement()
			if s != nil {
				body.Body = append(body.Body, s)
			}
			p.nextToken()
		}
		c.Body = body
		stmt.Cases = append(stmt.Cases, c)
	}
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	line := p.curToken.Line
	p.nextToken()
	arg := p.parseExpression(LOWEST)
	if p.peekIs(token.SEMI) {
		p.nextToken()
	}
	return &ast.ThrowStatement{LineNo: line, Argument: arg}
}

func (p *Parser) parseTryStatement() ast.Statement {
	line := p.curToken.Line
	if !p.expect(token.LBRACE) {
		return nil
	}
	stmt := &ast.TryStatement{LineNo: line, Block: p.parseBlockStatement()}
	if p.peekIs(token.CATCH) {
		p.nextToken()
		handler := &ast.CatchClause{}
		if p.peekIs(token.LPAREN) {
			p.nextToken()
			if p.expect(token.IDENT) {
				handler.Param = &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
			}
			p.expect(token.RPAREN)
		}
		if p.expect(token.LBRACE) {
			handler.Body = p.parseBlockStatement()
		}
		stmt.Handler = handler
	}
	if p.peekIs(token.FINALLY) {
		p.nextToken()
		if p.expect(token.LBRACE) {
			stmt.Finally = p.parseBlockStatement()
		}
	}
	return stmt
}

func (p *Parser) parseWithStatement() ast.Statement {
	line := p.curToken.Line
	if !p.expect(token.LPAREN) {
		return nil
	}
	p.nextToken()
	obj := p.parseExpression(LOWEST)
	if !p.expect(token.RPAREN) || !p.expect(token.LBRACE) {
		return nil
	}
	return &ast.WithStatement{LineNo: line, Object: obj, Body: p.parseBlockStatement()}
}

func (p *Parser) parseFunctionDeclaration() ast.Statement {
	line := p.curToken.Line
	if !p.expect(token.IDENT) {
		return nil
	}
	id := &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
	fn := &ast.FunctionDeclaration{LineNo: line, Id: id}
	if !p.expect(token.LPAREN) {
		return nil
	}
	fn.Params, fn.RestParam = p.parseParamList()
	if !p.expect(token.LBRACE) {
		return nil
	}
	fn.Body = p.parseBlockStatement()
	return fn
}

func (p *Parser) parseParamList() ([]*ast.Identifier, *ast.Identifier) {
	var params []*ast.Identifier
	var rest *ast.Identifier
	if p.peekIs(token.RPAREN) {
		p.nextToken()
		return params, rest
	}
	p.nextToken()
	for {
		if p.curIs(token.SPREAD) {
			p.nextToken()
			rest = &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
		} else {
			params = append(params, &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal})
		}
		if p.peekIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return params, rest
}

func (p *Parser) parseClassDeclaration() ast.Statement {
	line := p.curToken.Line
	if !p.expect(token.IDENT) {
		return nil
	}
	id := &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
	cls := &ast.ClassDeclaration{LineNo: line, Id: id}
	if p.peekIs(token.EXTENDS) {
		p.nextToken()
		if p.expect(token.IDENT) {
			cls.Super = &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
		}
	}
	if !p.expect(token.LBRACE) {
		return nil
	}
	p.nextToken()
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		if p.curIs(token.SEMI) {
			p.nextToken()
			continue
		}
		mLine := p.curToken.Line
		isCtor := p.curIs(token.CONSTRUCTOR)
		name := p.curToken.Literal
		method := &ast.FunctionDeclaration{
			LineNo:        mLine,
			Id:            &ast.Identifier{LineNo: mLine, Name: name},
			IsMethod:      true,
			IsConstructor: isCtor,
		}
		if !p.expect(token.LPAREN) {
			return nil
		}
		method.Params, method.RestParam = p.parseParamList()
		if !p.expect(token.LBRACE) {
			return nil
		}
		method.Body = p.parseBlockStatement()
		cls.Methods = append(cls.Methods, method)
		p.nextToken()
	}
	return cls
}

/* -------------------- expressions -------------------- */

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.accum.Errorf(p.curToken.Line, "unexpected token %s in expression", p.curToken.Type)
		return nil
	}
	left := prefix()

	for !p.peekIs(token.SEMI) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
}

func (p *Parser) parseUndefined() ast.Expression {
	return &ast.Identifier{LineNo: p.curToken.Line, Name: "undefined"}
}

// parseNumberLiteral hands the raw literal text to internal/numlit, which
// knows the 0x/0b/0o base prefixes and `_` digit separators the lexer's
// readNumber merely scans without validating.
func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := p.curToken.Literal
	var v float64
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") ||
		strings.HasPrefix(lit, "0b") || strings.HasPrefix(lit, "0B") ||
		strings.HasPrefix(lit, "0o") || strings.HasPrefix(lit, "0O") {
		i, err := numlit.ParseIntLiteral(lit)
		if err != nil {
			p.accum.Errorf(p.curToken.Line, "%s", err.Error())
		}
		v = float64(i)
	} else {
		f, err := numlit.ParseFloatLiteral(lit)
		if err != nil {
			p.accum.Errorf(p.curToken.Line, "%s", err.Error())
		}
		v = f
	}
	return &ast.NumberLiteral{LineNo: p.curToken.Line, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{LineNo: p.curToken.Line, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{LineNo: p.curToken.Line, Value: p.curIs(token.TRUE)}
}

func (p *Parser) parseThisExpression() ast.Expression {
	return &ast.ThisExpression{LineNo: p.curToken.Line}
}

func (p *Parser) parseGroupedOrArrow() ast.Expression {
	line := p.curToken.Line
	save := *p
	if params, rest, ok := p.tryParseArrowParams(); ok && p.peekIs(token.ARROW) {
		p.nextToken()
		p.nextToken()
		fn := &ast.FunctionExpression{LineNo: line, Params: params, RestParam: rest, IsArrow: true}
		if p.curIs(token.LBRACE) {
			fn.Body = p.parseBlockStatement()
		} else {
			expr := p.parseExpression(ASSIGN)
			fn.Body = &ast.BlockStatement{LineNo: line, Body: []ast.Statement{&ast.ReturnStatement{LineNo: line, Argument: expr}}}
		}
		return fn
	}
	*p = save
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expect(token.RPAREN) {
		return expr
	}
	return expr
}

// tryParseArrowParams reports whether the tokens ahead form a parenthesized
// parameter list followed by `=>`, scanning a copy of the lexer so nothing
// is consumed when they do not (a grouped expression); only then does it
// consume `(a, b)`.
func (p *Parser) tryParseArrowParams() ([]*ast.Identifier, *ast.Identifier, bool) {
	if !p.curIs(token.LPAREN) {
		return nil, nil, false
	}
	lx := *p.l
	tok := p.peekToken
	for tok.Type != token.RPAREN {
		if tok.Type == token.SPREAD {
			tok = lx.NextToken()
		}
		if tok.Type != token.IDENT {
			return nil, nil, false
		}
		if tok = lx.NextToken(); tok.Type == token.COMMA {
			tok = lx.NextToken()
		}
	}
	if lx.NextToken().Type != token.ARROW {
		return nil, nil, false
	}
	params, rest := p.parseParamList()
	return params, rest, true
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	line := p.curToken.Line
	arr := &ast.ArrayLiteral{LineNo: line}
	if p.peekIs(token.RBRACKET) {
		p.nextToken()
		return arr
	}
	p.nextToken()
	arr.Elements = append(arr.Elements, p.parseExpression(ASSIGN))
	for p.peekIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		arr.Elements = append(arr.Elements, p.parseExpression(ASSIGN))
	}
	p.expect(token.RBRACKET)
	return arr
}

func (p *Parser) parseObjectLiteral() ast.Expression {
	line := p.curToken.Line
	obj := &ast.ObjectLiteral{LineNo: line}
	if p.peekIs(token.RBRACE) {
		p.nextToken()
		return obj
	}
	p.nextToken()
	for {
		keyLine := p.curToken.Line
		key := &ast.Identifier{LineNo: keyLine, Name: p.curToken.Literal}
		prop := &ast.Property{LineNo: keyLine, Key: key}
		if p.peekIs(token.COLON) {
			p.nextToken()
			p.nextToken()
			prop.Value = p.parseExpression(ASSIGN)
		} else {
			// shorthand { x }
			prop.Value = &ast.Identifier{LineNo: keyLine, Name: key.Name}
		}
		obj.Properties = append(obj.Properties, prop)
		if p.peekIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	p.expect(token.RBRACE)
	return obj
}

func (p *Parser) parseFunctionExpression() ast.Expression {
	line := p.curToken.Line
	fn := &ast.FunctionExpression{LineNo: line}
	if p.peekIs(token.IDENT) {
		p.nextToken()
		fn.Id = &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
	}
	if !p.expect(token.LPAREN) {
		return fn
	}
	fn.Params, fn.RestParam = p.parseParamList()
	if !p.expect(token.LBRACE) {
		return fn
	}
	fn.Body = p.parseBlockStatement()
	return fn
}

func (p *Parser) parseNewExpression() ast.Expression {
	line := p.curToken.Line
	p.nextToken()
	callee := p.parseExpression(CALL)
	n := &ast.NewExpression{LineNo: line}
	if call, ok := callee.(*ast.CallExpression); ok {
		n.Callee = call.Callee
		n.Arguments = call.Arguments
	} else {
		n.Callee = callee
	}
	if p.peekIs(token.LPAREN) {
		p.nextToken()
		n.Arguments = p.parseExpressionList(token.RPAREN)
	}
	return n
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	line := p.curToken.Line
	op := p.curToken.Literal
	if p.curIs(token.TYPEOF) {
		op = "typeof"
	} else if p.curIs(token.DELETE) {
		op = "delete"
	} else if p.curIs(token.VOID) {
		op = "void"
	}
	p.nextToken()
	return &ast.UnaryExpression{LineNo: line, Operator: op, Argument: p.parseExpression(PREFIX)}
}

func (p *Parser) parseUpdatePrefix() ast.Expression {
	line := p.curToken.Line
	op := p.curToken.Literal
	p.nextToken()
	return &ast.UpdateExpression{LineNo: line, Operator: op, Argument: p.parseExpression(PREFIX), Prefix: true}
}

func (p *Parser) parseUpdatePostfix(left ast.Expression) ast.Expression {
	return &ast.UpdateExpression{LineNo: p.curToken.Line, Operator: p.curToken.Literal, Argument: left, Prefix: false}
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	line := p.curToken.Line
	op := p.curToken.Literal
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.BinaryExpression{LineNo: line, Operator: op, Left: left, Right: right}
}

func (p *Parser) parseLogicalExpression(left ast.Expression) ast.Expression {
	line := p.curToken.Line
	op := p.curToken.Literal
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.LogicalExpression{LineNo: line, Operator: op, Left: left, Right: right}
}

func (p *Parser) parseConditionalExpression(test ast.Expression) ast.Expression {
	line := p.curToken.Line
	p.nextToken()
	cons := p.parseExpression(ASSIGN)
	if !p.expect(token.COLON) {
		return nil
	}
	p.nextToken()
	alt := p.parseExpression(ASSIGN)
	return &ast.ConditionalExpression{LineNo: line, Test: test, Consequent: cons, Alternate: alt}
}

func (p *Parser) parseAssignmentExpression(left ast.Expression) ast.Expression {
	line := p.curToken.Line
	op := p.curToken.Literal
	p.nextToken()
	right := p.parseExpression(ASSIGN - 1)
	return &ast.AssignmentExpression{LineNo: line, Operator: op, Left: left, Right: right}
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	line := p.curToken.Line
	p.nextToken()
	idx := p.parseExpression(LOWEST)
	if !p.expect(token.RBRACKET) {
		return nil
	}
	return &ast.MemberExpression{LineNo: line, Object: left, Property: idx, Computed: true}
}

func (p *Parser) parseMemberExpression(left ast.Expression) ast.Expression {
	line := p.curToken.Line
	if !p.expect(token.IDENT) {
		return nil
	}
	prop := &ast.Identifier{LineNo: p.curToken.Line, Name: p.curToken.Literal}
	return &ast.MemberExpression{LineNo: line, Object: left, Property: prop, Computed: false}
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	line := p.curToken.Line
	call := &ast.CallExpression{LineNo: line, Callee: fn}
	call.Arguments = p.parseExpressionList(token.RPAREN)
	return call
}

func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	var list []ast.Expression
	if p.peekIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(ASSIGN))
	for p.peekIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(ASSIGN))
	}
	p.expect(end)
	return list
}
