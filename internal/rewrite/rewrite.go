// Package rewrite implements C3, the AST rewriter (spec.md §4.3): it
// walks the parsed tree once, in the same pass (a) rejecting forbidden
// constructs by appending to the shared diagnostic accumulator (C1), (b)
// desugaring compound assignment/update operators into their expanded
// forms, and (c) splicing calls into the
// runtime check library (C4) around every load, store, arithmetic
// operation, call, and update so the evaluator never has to special-case
// ElementaryJS's restrictions itself. Grounded on the single-visitor,
// diagnostic-accumulating shape of welle's own evaluator traversal
// (internal/evaluator/evaluator.go), generalized from "evaluate" to
// "rewrite."
package rewrite

import (
	"fmt"

	"welle/internal/ast"
	"welle/internal/diag"
)

// Rewriter holds the running hygiene counter for synthesized temporaries
// (spec.md §9's "Compound assignment on computed LHS" note) and the
// shared diagnostic accumulator.
type Rewriter struct {
	accum    *diag.Accumulator
	uuidSeed string
	tempSeq  int

	// inConstructor tracks whether the statement/expression currently being
	// rewritten lexically sits inside a class constructor body (spec.md
	// §4.3/§9): `this.m = v` there bypasses CheckMemberAssign's own-property
	// existence check, since the constructor is what defines those members
	// in the first place. Nested non-arrow functions reset the flag; nested
	// arrow functions inherit it via the usual lexical-`this` rules.
	inConstructor bool
}

// New builds a Rewriter. uuidSeed is a pre-generated UUID string (from
// github.com/gofrs/uuid, minted once per compile by internal/compile) used
// to build temp names no source program can spell.
func New(accum *diag.Accumulator, uuidSeed string) *Rewriter {
	return &Rewriter{accum: accum, uuidSeed: uuidSeed}
}

func (r *Rewriter) freshTemp() string {
	r.tempSeq++
	return fmt.Sprintf("__ejs_t_%s_%d", r.uuidSeed, r.tempSeq)
}

// Rewrite transforms program in place and returns it. Diagnostics are
// reported to the accumulator passed to New; the caller decides success
// based on accum.Empty() after this returns, per spec.md §4.1/§4.8.
func (r *Rewriter) Rewrite(program *ast.Program) *ast.Program {
	program.Body = r.rewriteStatements(program.Body)
	return program
}

func (r *Rewriter) rewriteStatements(stmts []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, r.rewriteStatement(s))
	}
	return out
}

func (r *Rewriter) rewriteStatement(stmt ast.Statement) ast.Statement {
	switch n := stmt.(type) {
	case *ast.VarDeclaration:
		if n.Kind == ast.VarVar {
			r.accum.Errorf(n.LineNo, "Use 'let' or 'const' to declare a variable.")
		}
		for _, d := range n.Declarations {
			if d.Init != nil {
				d.Init = r.rewriteExpr(d.Init)
			}
		}
		return n
	case *ast.DestructuringDeclaration:
		r.accum.Errorf(n.LineNo, "destructuring declarations are not allowed")
		return n
	case *ast.ExpressionStatement:
		if n.Expression != nil {
			n.Expression = r.rewriteExpr(n.Expression)
		}
		return n
	case *ast.BlockStatement:
		n.Body = r.rewriteStatements(n.Body)
		return n
	case *ast.ReturnStatement:
		if n.Argument != nil {
			n.Argument = r.rewriteExpr(n.Argument)
		}
		return n
	case *ast.IfStatement:
		n.Test = r.rewriteForbidAssign(n.Test)
		n.Consequent = r.rewriteBlock(n.Consequent)
		if n.Alternate != nil {
			n.Alternate = r.rewriteStatement(n.Alternate)
		}
		return n
	case *ast.WhileStatement:
		n.Test = r.rewriteForbidAssign(n.Test)
		n.Body = r.rewriteBlock(n.Body)
		return n
	case *ast.DoWhileStatement:
		n.Body = r.rewriteBlock(n.Body)
		n.Test = r.rewriteForbidAssign(n.Test)
		return n
	case *ast.ForStatement:
		if n.Init == nil || n.Test == nil || n.Update == nil {
			r.accum.Errorf(n.LineNo, "for loops must have init, test, and update clauses")
		}
		if n.Init != nil {
			n.Init = r.rewriteStatement(n.Init)
		}
		if n.Test != nil {
			n.Test = r.rewriteForbidAssign(n.Test)
		}
		if n.Update != nil {
			n.Update = r.rewriteExpr(n.Update)
		}
		n.Body = r.rewriteBlock(n.Body)
		return n
	case *ast.ForInStatement:
		kw := "for-in"
		if n.IsOf {
			kw = "for-of"
		}
		r.accum.Errorf(n.LineNo, "%s loops are not allowed", kw)
		return n
	case *ast.SwitchStatement:
		n.Discriminant = r.rewriteForbidAssign(n.Discriminant)
		for _, c := range n.Cases {
			if c.Test != nil {
				c.Test = r.rewriteForbidAssign(c.Test)
			}
			c.Body = r.rewriteBlock(c.Body)
		}
		return n
	case *ast.ThrowStatement:
		r.accum.Errorf(n.LineNo, "throw statements are not allowed")
		return n
	case *ast.TryStatement:
		r.accum.Errorf(n.LineNo, "try/catch statements are not allowed")
		return n
	case *ast.WithStatement:
		r.accum.Errorf(n.LineNo, "with statements are not allowed")
		return n
	case *ast.FunctionDeclaration:
		saved := r.inConstructor
		r.inConstructor = false
		n.Body = r.rewriteBlock(n.Body)
		r.inConstructor = saved
		if n.RestParam != nil {
			r.accum.Errorf(n.LineNo, "rest parameters are not allowed")
		}
		return n
	case *ast.ClassDeclaration:
		saved := r.inConstructor
		for _, m := range n.Methods {
			r.inConstructor = m.IsConstructor
			m.Body = r.rewriteBlock(m.Body)
			if m.RestParam != nil {
				r.accum.Errorf(m.LineNo, "rest parameters are not allowed")
			}
		}
		r.inConstructor = saved
		return n
	default:
		return n
	}
}

func (r *Rewriter) rewriteBlock(b *ast.BlockStatement) *ast.BlockStatement {
	if b == nil {
		return nil
	}
	b.Body = r.rewriteStatements(b.Body)
	return b
}

func (r *Rewriter) rewriteExpr(expr ast.Expression) ast.Expression {
	switch n := expr.(type) {
	case *ast.Identifier:
		if n.Name == "Array" {
			return &ast.RuntimeCallExpression{LineNo: n.LineNo, Op: "arrayConstructor"}
		}
		return n
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BooleanLiteral, *ast.ThisExpression:
		return n
	case *ast.ArrayLiteral:
		for i, e := range n.Elements {
			n.Elements[i] = r.rewriteExpr(e)
		}
		return &ast.RuntimeCallExpression{LineNo: n.LineNo, Op: "checkArray", Arguments: []ast.Expression{n}}
	case *ast.ObjectLiteral:
		seen := map[string]bool{}
		for _, p := range n.Properties {
			if seen[p.Key.Name] {
				r.accum.Errorf(n.LineNo, "duplicate key '%s' in object literal", p.Key.Name)
			}
			seen[p.Key.Name] = true
			p.Value = r.rewriteExpr(p.Value)
		}
		return n
	case *ast.FunctionExpression:
		saved := r.inConstructor
		if !n.IsArrow {
			r.inConstructor = false
		}
		n.Body = r.rewriteBlock(n.Body)
		r.inConstructor = saved
		if n.RestParam != nil {
			r.accum.Errorf(n.LineNo, "rest parameters are not allowed")
		}
		return n
	case *ast.UnaryExpression:
		n.Argument = r.rewriteForbidAssign(n.Argument)
		if n.Operator == "delete" {
			r.accum.Errorf(n.LineNo, "delete is not allowed")
		}
		return n
	case *ast.UpdateExpression:
		return r.rewriteUpdate(n)
	case *ast.BinaryExpression:
		if n.Operator == "instanceof" || n.Operator == "in" {
			r.accum.Errorf(n.LineNo, "the %q operator is not allowed", n.Operator)
		}
		n.Left = r.rewriteForbidAssign(n.Left)
		n.Right = r.rewriteForbidAssign(n.Right)
		return &ast.RuntimeCallExpression{
			LineNo: n.LineNo,
			Op:     runtimeOpForBinary(n.Operator),
			Arguments: []ast.Expression{
				n.Left, n.Right,
				&ast.StringLiteral{LineNo: n.LineNo, Value: n.Operator},
				&ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)},
			},
		}
	case *ast.LogicalExpression:
		n.Left = r.rewriteForbidAssign(n.Left)
		n.Right = r.rewriteForbidAssign(n.Right)
		return n
	case *ast.ConditionalExpression:
		n.Test = r.rewriteForbidAssign(n.Test)
		n.Consequent = r.rewriteForbidAssign(n.Consequent)
		n.Alternate = r.rewriteForbidAssign(n.Alternate)
		return n
	case *ast.AssignmentExpression:
		return r.rewriteAssignment(n)
	case *ast.SequenceExpression:
		for i, e := range n.Expressions {
			n.Expressions[i] = r.rewriteExpr(e)
		}
		return n
	case *ast.MemberExpression:
		n.Object = r.rewriteExpr(n.Object)
		if n.Computed {
			n.Property = r.rewriteExpr(n.Property)
			return &ast.RuntimeCallExpression{
				LineNo:    n.LineNo,
				Op:        "checkMember",
				Arguments: []ast.Expression{n.Object, n.Property, &ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)}},
			}
		}
		prop := n.Property.(*ast.Identifier)
		return &ast.RuntimeCallExpression{
			LineNo: n.LineNo,
			Op:     "dot",
			Arguments: []ast.Expression{
				n.Object,
				&ast.StringLiteral{LineNo: n.LineNo, Value: prop.Name},
				&ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)},
			},
		}
	case *ast.CallExpression:
		n.Callee = r.rewriteExpr(n.Callee)
		for i, a := range n.Arguments {
			n.Arguments[i] = r.rewriteExpr(a)
		}
		return &ast.RuntimeCallExpression{
			LineNo:    n.LineNo,
			Op:        "checkCall",
			Arguments: append([]ast.Expression{n.Callee, &ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)}}, n.Arguments...),
		}
	case *ast.NewExpression:
		n.Callee = r.rewriteExpr(n.Callee)
		for i, a := range n.Arguments {
			n.Arguments[i] = r.rewriteExpr(a)
		}
		return n
	default:
		return n
	}
}

// rewriteForbidAssign rewrites e the same as rewriteExpr, but first rejects
// e being itself an assignment expression: spec.md §4.3 forbids using an
// assignment as the condition of if/while/do-while/for or a switch's
// discriminant/case test, or as an operand of a logical, binary,
// conditional, or unary expression. A bare assignment statement, or the
// right-hand side of another assignment, is unaffected since those sites
// call rewriteExpr directly.
func (r *Rewriter) rewriteForbidAssign(e ast.Expression) ast.Expression {
	if _, ok := e.(*ast.AssignmentExpression); ok {
		r.accum.Errorf(e.Line(), "forbidden assignment expression")
	}
	return r.rewriteExpr(e)
}

func runtimeOpForBinary(op string) string {
	switch op {
	case "+", "-", "*", "/", "%":
		if op == "+" {
			return "applyNumOrStringOp"
		}
		return "applyNumOp"
	default:
		return "compare"
	}
}

// rewriteUpdate desugars `++x`/`--x` into a runtime-checked read-modify-
// write and rejects the postfix form (spec.md §4.3: "only the prefix form
// is allowed"). For an identifier the new value is stored back by
// internal/interp's checkUpdateOperand case; for a member it is written
// through checkMemberAssign.
func (r *Rewriter) rewriteUpdate(n *ast.UpdateExpression) ast.Expression {
	if !n.Prefix {
		r.accum.Errorf(n.LineNo, "postfix %s is not allowed, use prefix %s", n.Operator, n.Operator)
	}
	switch target := n.Argument.(type) {
	case *ast.Identifier:
		return &ast.RuntimeCallExpression{
			LineNo:    n.LineNo,
			Op:        "checkUpdateOperand",
			Arguments: []ast.Expression{target, &ast.StringLiteral{LineNo: n.LineNo, Value: n.Operator}, &ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)}},
		}
	case *ast.MemberExpression:
		// Hoist the object into a temp so it's evaluated exactly once
		// (spec.md §9), then splice the runtime check around the
		// read-modify-write through that temp.
		temp := r.freshTemp()
		tempIdent := &ast.Identifier{LineNo: n.LineNo, Name: temp}
		assignTemp := &ast.AssignmentExpression{LineNo: n.LineNo, Operator: "=", Left: tempIdent, Right: r.rewriteExpr(target.Object)}
		rewrittenMember := &ast.MemberExpression{LineNo: n.LineNo, Object: tempIdent, Property: target.Property, Computed: target.Computed}
		update := &ast.RuntimeCallExpression{
			LineNo:    n.LineNo,
			Op:        "checkUpdateOperand",
			Arguments: []ast.Expression{rewrittenMember, &ast.StringLiteral{LineNo: n.LineNo, Value: n.Operator}, &ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)}},
		}
		writeMember := &ast.RuntimeCallExpression{
			LineNo:    n.LineNo,
			Op:        "checkMemberAssign",
			Arguments: []ast.Expression{tempIdent, memberKeyExpr(rewrittenMember), update, &ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)}},
		}
		return &ast.SequenceExpression{LineNo: n.LineNo, Expressions: []ast.Expression{assignTemp, writeMember}}
	default:
		r.accum.Errorf(n.LineNo, "invalid update target")
		return n
	}
}

// rewriteAssignment desugars compound assignment (`+=`, `-=`, ...) into an
// explicit read-modify-write guarded by the runtime check library, and
// rejects the bitwise/shift compound forms (spec.md §4.3).
func (r *Rewriter) rewriteAssignment(n *ast.AssignmentExpression) ast.Expression {
	switch n.Operator {
	case "&=", "|=", "^=", "<<=", ">>=":
		r.accum.Errorf(n.LineNo, "compound bitwise assignment %q is not allowed", n.Operator)
		return n
	}

	if n.Operator == "=" {
		if id, ok := n.Left.(*ast.Identifier); ok {
			n.Right = r.rewriteExpr(n.Right)
			return &ast.AssignmentExpression{LineNo: n.LineNo, Operator: "=", Left: id, Right: n.Right}
		}
		member := n.Left.(*ast.MemberExpression)
		rewrittenObj := r.rewriteExpr(member.Object)
		n.Right = r.rewriteExpr(n.Right)
		left := &ast.MemberExpression{LineNo: member.LineNo, Object: rewrittenObj, Property: member.Property, Computed: member.Computed}
		op := "checkMemberAssign"
		if r.inConstructor && isThisMember(left) {
			op = "setMember"
		}
		return &ast.RuntimeCallExpression{
			LineNo: n.LineNo,
			Op:     op,
			Arguments: []ast.Expression{
				left.Object, memberKeyExpr(left), n.Right,
				&ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)},
			},
		}
	}

	baseOp := n.Operator[:len(n.Operator)-1] // "+=" -> "+"

	if id, ok := n.Left.(*ast.Identifier); ok {
		n.Right = r.rewriteExpr(n.Right)
		rhs := &ast.RuntimeCallExpression{
			LineNo: n.LineNo,
			Op:     runtimeOpForBinary(baseOp),
			Arguments: []ast.Expression{
				id, n.Right,
				&ast.StringLiteral{LineNo: n.LineNo, Value: baseOp},
				&ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)},
			},
		}
		return &ast.AssignmentExpression{LineNo: n.LineNo, Operator: "=", Left: id, Right: rhs}
	}

	member := n.Left.(*ast.MemberExpression)
	temp := r.freshTemp()
	tempIdent := &ast.Identifier{LineNo: n.LineNo, Name: temp}
	assignTemp := &ast.AssignmentExpression{LineNo: n.LineNo, Operator: "=", Left: tempIdent, Right: r.rewriteExpr(member.Object)}
	readMember := &ast.MemberExpression{LineNo: n.LineNo, Object: tempIdent, Property: member.Property, Computed: member.Computed}
	rhs := &ast.RuntimeCallExpression{
		LineNo: n.LineNo,
		Op:     runtimeOpForBinary(baseOp),
		Arguments: []ast.Expression{
			readMember, r.rewriteExpr(n.Right),
			&ast.StringLiteral{LineNo: n.LineNo, Value: baseOp},
			&ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)},
		},
	}
	writeMember := &ast.RuntimeCallExpression{
		LineNo:    n.LineNo,
		Op:        "checkMemberAssign",
		Arguments: []ast.Expression{tempIdent, memberKeyExpr(readMember), rhs, &ast.NumberLiteral{LineNo: n.LineNo, Value: float64(n.LineNo)}},
	}
	return &ast.SequenceExpression{LineNo: n.LineNo, Expressions: []ast.Expression{assignTemp, writeMember}}
}

// isThisMember reports whether m is a non-computed `this.name` access, the
// only shape the constructor-local relaxation applies to (spec.md §4.3/§9).
func isThisMember(m *ast.MemberExpression) bool {
	if m.Computed {
		return false
	}
	_, ok := m.Object.(*ast.ThisExpression)
	return ok
}

func memberKeyExpr(m *ast.MemberExpression) ast.Expression {
	if m.Computed {
		return m.Property
	}
	id := m.Property.(*ast.Identifier)
	return &ast.StringLiteral{LineNo: id.LineNo, Value: id.Name}
}
