package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"welle/internal/ast"
	"welle/internal/diag"
	"welle/internal/lexer"
	"welle/internal/parser"
)

func rewriteSource(t *testing.T, src string) (*ast.Program, *diag.Accumulator) {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	require.Empty(t, p.Diagnostics())
	accum := diag.NewAccumulator()
	prog = New(accum, "test-seed").Rewrite(prog)
	return prog, accum
}

func TestRewriteBinaryBecomesRuntimeCall(t *testing.T) {
	prog, accum := rewriteSource(t, `let x = 1 + 2;`)
	require.True(t, accum.Empty())
	decl := prog.Body[0].(*ast.VarDeclaration)
	call, ok := decl.Declarations[0].Init.(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "applyNumOrStringOp", call.Op)
}

func TestRewriteMemberAccessBecomesDotCall(t *testing.T) {
	prog, accum := rewriteSource(t, `let y = a.b;`)
	require.True(t, accum.Empty())
	decl := prog.Body[0].(*ast.VarDeclaration)
	call, ok := decl.Declarations[0].Init.(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "dot", call.Op)
}

func TestRewriteRejectsForOf(t *testing.T) {
	_, accum := rewriteSource(t, `for (x of xs) { y = x; }`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "for-of loops are not allowed")
}

func TestRewriteRejectsThrow(t *testing.T) {
	_, accum := rewriteSource(t, `throw 1;`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "throw statements are not allowed")
}

func TestRewriteRejectsTry(t *testing.T) {
	_, accum := rewriteSource(t, `try { x = 1; } catch (e) { y = 2; }`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "try/catch statements are not allowed")
}

func TestRewriteRejectsPostfixUpdate(t *testing.T) {
	_, accum := rewriteSource(t, `x++;`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "postfix ++ is not allowed")
}

func TestRewritePrefixUpdateBecomesRuntimeCall(t *testing.T) {
	prog, accum := rewriteSource(t, `++x;`)
	require.True(t, accum.Empty())
	exprStmt := prog.Body[0].(*ast.ExpressionStatement)
	call, ok := exprStmt.Expression.(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "checkUpdateOperand", call.Op)
}

func TestRewriteCompoundAssignmentDesugars(t *testing.T) {
	prog, accum := rewriteSource(t, `x += 1;`)
	require.True(t, accum.Empty())
	exprStmt := prog.Body[0].(*ast.ExpressionStatement)
	assign, ok := exprStmt.Expression.(*ast.AssignmentExpression)
	require.True(t, ok)
	require.Equal(t, "=", assign.Operator)
	call, ok := assign.Right.(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "applyNumOrStringOp", call.Op)
}

func TestRewriteRejectsBitwiseCompoundAssignment(t *testing.T) {
	_, accum := rewriteSource(t, `x &= 1;`)
	require.False(t, accum.Empty())
}

func TestRewriteRejectsMissingForClauses(t *testing.T) {
	_, accum := rewriteSource(t, `for (;;) { x = 1; }`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "init, test, and update clauses")
}

func TestRewriteRejectsVarDeclaration(t *testing.T) {
	_, accum := rewriteSource(t, `var x = 10;`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "Use 'let' or 'const' to declare a variable.")
}

func TestRewriteAllowsLetAndConst(t *testing.T) {
	_, accum := rewriteSource(t, `let x = 1; const y = 2;`)
	require.True(t, accum.Empty())
}

func TestRewriteCallBecomesCheckCall(t *testing.T) {
	prog, accum := rewriteSource(t, `f(1, 2);`)
	require.True(t, accum.Empty())
	exprStmt := prog.Body[0].(*ast.ExpressionStatement)
	call, ok := exprStmt.Expression.(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "checkCall", call.Op)
	require.Len(t, call.Arguments, 4)
}

func TestRewriteBareArrayIdentifierBecomesConstructorStub(t *testing.T) {
	prog, accum := rewriteSource(t, `let a = Array(3);`)
	require.True(t, accum.Empty())
	decl := prog.Body[0].(*ast.VarDeclaration)
	call, ok := decl.Declarations[0].Init.(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "checkCall", call.Op)
	inner, ok := call.Arguments[0].(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "arrayConstructor", inner.Op)
}

func TestRewriteNewArrayBecomesConstructorStub(t *testing.T) {
	prog, accum := rewriteSource(t, `let a = new Array(3);`)
	require.True(t, accum.Empty())
	decl := prog.Body[0].(*ast.VarDeclaration)
	newExpr, ok := decl.Declarations[0].Init.(*ast.NewExpression)
	require.True(t, ok)
	call, ok := newExpr.Callee.(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "arrayConstructor", call.Op)
}

func TestRewriteOtherIdentifiersPassThrough(t *testing.T) {
	prog, accum := rewriteSource(t, `let x = 1; let y = x;`)
	require.True(t, accum.Empty())
	decl := prog.Body[1].(*ast.VarDeclaration)
	_, ok := decl.Declarations[0].Init.(*ast.Identifier)
	require.True(t, ok)
}

func TestRewriteRejectsDuplicateObjectLiteralKeys(t *testing.T) {
	_, accum := rewriteSource(t, `let o = {x: 1, x: 2};`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "duplicate key")
}

func TestRewriteAllowsDistinctObjectLiteralKeys(t *testing.T) {
	_, accum := rewriteSource(t, `let o = {x: 1, y: 2};`)
	require.True(t, accum.Empty())
}

func TestRewriteRejectsAssignmentAsIfCondition(t *testing.T) {
	_, accum := rewriteSource(t, `let x = 0; if (x = 5) { x = 1; }`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "forbidden assignment expression")
}

func TestRewriteRejectsAssignmentAsWhileCondition(t *testing.T) {
	_, accum := rewriteSource(t, `let x = 0; while (x = 5) { x = 1; }`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "forbidden assignment expression")
}

func TestRewriteRejectsAssignmentAsBinaryOperand(t *testing.T) {
	_, accum := rewriteSource(t, `let a = 0; let b = 0; let c = a + (b = 2);`)
	require.False(t, accum.Empty())
	require.Contains(t, accum.Diagnostics()[0].Message, "forbidden assignment expression")
}

func TestRewriteAllowsBareTopLevelAssignment(t *testing.T) {
	_, accum := rewriteSource(t, `let x = 0; x = 5;`)
	require.True(t, accum.Empty())
}

func TestRewriteAllowsPlainIfCondition(t *testing.T) {
	_, accum := rewriteSource(t, `let x = 0; if (x === 5) { x = 1; }`)
	require.True(t, accum.Empty())
}

func TestRewriteThisMemberAssignInConstructorUsesSetMember(t *testing.T) {
	prog, accum := rewriteSource(t, `
class Point {
  constructor(x, y) {
    this.x = x;
    this.y = y;
  }
}`)
	require.True(t, accum.Empty())
	class := prog.Body[0].(*ast.ClassDeclaration)
	ctorBody := class.Methods[0].Body.Body
	stmt := ctorBody[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "setMember", call.Op)
}

func TestRewriteThisMemberAssignOutsideConstructorUsesCheckMemberAssign(t *testing.T) {
	prog, accum := rewriteSource(t, `
class Point {
  constructor(x, y) {
    this.x = x;
    this.y = y;
  }
  reset() {
    this.x = 0;
  }
}`)
	require.True(t, accum.Empty())
	class := prog.Body[0].(*ast.ClassDeclaration)
	var resetMethod *ast.FunctionDeclaration
	for _, m := range class.Methods {
		if m.Id.Name == "reset" {
			resetMethod = m
		}
	}
	require.NotNil(t, resetMethod)
	stmt := resetMethod.Body.Body[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.RuntimeCallExpression)
	require.True(t, ok)
	require.Equal(t, "checkMemberAssign", call.Op)
}
