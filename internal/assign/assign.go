// Package assign implements C2, the definite-assignment tracker: a
// compile-time pass that, for every identifier reference, decides whether
// it is definitely initialized (I), possibly uninitialized (U), or
// unknown (not yet declared) at that point in the program, and reports a
// diagnostic when a read can observe an uninitialized binding. Scopes
// push/pop/merge differently by kind, mirroring the shape of
// welle/internal/object.Environment's scope chain but over name sets
// instead of values, since this pass runs before any value exists.
package assign

import (
	"welle/internal/ast"
	"welle/internal/diag"
)

// ScopeKind selects the merge rule used when a scope closes (spec.md
// §4.2): plain blocks and do-while bodies (which run at least once)
// thread their exit state straight to the enclosing scope; function
// bodies discard theirs; while/for loop bodies never promote (the body
// may run zero times); an if-branch or switch-case only promotes when every
// sibling branch/case promotes the same name, and a switch without a
// default clause never promotes at all.
type ScopeKind int

const (
	ScopeFunction ScopeKind = iota
	ScopeBlock
	ScopeLoop
	ScopeDoWhile
	ScopeIfBranch
	ScopeSwitchCase
)

// scope tracks, for names declared within it, whether each is definitely
// initialized (I) or declared-but-uninitialized (U), which of those names
// are const, and which ancestor-declared names this scope's subtree has
// promoted to I but not yet merged into the ancestor (pending the
// enclosing statement's merge rule).
type scope struct {
	kind     ScopeKind
	outer    *scope
	states   map[string]bool // true = initialized (I), false = uninitialized (U)
	consts   map[string]bool // subset of states declared with `const`
	promoted map[string]bool // ancestor-declared names marked I within this subtree
}

func newScope(kind ScopeKind, outer *scope) *scope {
	return &scope{
		kind:     kind,
		outer:    outer,
		states:   map[string]bool{},
		consts:   map[string]bool{},
		promoted: map[string]bool{},
	}
}

func (s *scope) declare(name string, initialized bool, isConst bool) {
	s.states[name] = initialized
	if isConst {
		s.consts[name] = true
	}
}

func (s *scope) lookup(name string) (initialized bool, found bool) {
	for cur := s; cur != nil; cur = cur.outer {
		if _, ok := cur.promoted[name]; ok {
			return true, true
		}
		if v, ok := cur.states[name]; ok {
			return v, true
		}
	}
	return false, false
}

func (s *scope) findDeclaringScope(name string) *scope {
	for cur := s; cur != nil; cur = cur.outer {
		if _, ok := cur.states[name]; ok {
			return cur
		}
	}
	return nil
}

func (s *scope) isConst(name string) bool {
	ds := s.findDeclaringScope(name)
	return ds != nil && ds.consts[name]
}

// markAssigned records that name was written to while executing within
// scope s. A name declared directly in s is promoted in place (no merge
// needed: the declaration and the write share a scope). A name declared
// in an ancestor is recorded in s.promoted instead of mutating the
// ancestor directly, so the statement that created s (if/loop/switch) can
// apply its own merge rule before the promotion, if any, reaches the
// ancestor.
func markAssigned(s *scope, name string) {
	if _, ok := s.states[name]; ok {
		s.states[name] = true
		return
	}
	if s.outer == nil {
		return
	}
	if _, found := s.outer.lookup(name); found {
		s.promoted[name] = true
	}
}

// propagateAlways commits every name inner promoted into outer, used for
// scopes that are guaranteed to run at least once in sequence (plain
// blocks, do-while bodies), as opposed to conditionally (if-branches) or
// zero-or-more times (while/for loops).
func propagateAlways(inner *scope, outer *scope) {
	for name := range inner.promoted {
		markAssigned(outer, name)
	}
}

func intersect(a, b map[string]bool) map[string]bool {
	out := map[string]bool{}
	for name := range a {
		if b[name] {
			out[name] = true
		}
	}
	return out
}

// Tracker runs the definite-assignment pass over a program and an
// accumulator the rewriter (C3) shares, so both static-structure errors
// and definite-assignment errors land in the same diagnostic list before
// compile() (C8) decides success or failure.
type Tracker struct {
	accum *diag.Accumulator
}

func New(accum *diag.Accumulator) *Tracker {
	return &Tracker{accum: accum}
}

// Check walks program's top-level statements in a fresh function-level
// scope, reporting a diagnostic for every read of a U-state identifier.
func (t *Tracker) Check(program *ast.Program) {
	top := newScope(ScopeFunction, nil)
	t.walkStatements(program.Body, top)
}

func (t *Tracker) walkStatements(stmts []ast.Statement, s *scope) {
	for _, stmt := range stmts {
		t.walkStatement(stmt, s)
	}
}

func (t *Tracker) walkStatement(stmt ast.Statement, s *scope) {
	switch n := stmt.(type) {
	case *ast.VarDeclaration:
		isConst := n.Kind == ast.VarConst
		for _, d := range n.Declarations {
			if d.Init != nil {
				t.walkExpr(d.Init, s)
				s.declare(d.Name.Name, true, isConst)
			} else {
				s.declare(d.Name.Name, false, isConst)
			}
		}
	case *ast.DestructuringDeclaration:
		// rejected by the rewriter; nothing to track here.
	case *ast.ExpressionStatement:
		if n.Expression != nil {
			t.walkExpr(n.Expression, s)
		}
	case *ast.BlockStatement:
		inner := newScope(ScopeBlock, s)
		t.walkStatements(n.Body, inner)
		propagateAlways(inner, s)
	case *ast.ReturnStatement:
		if n.Argument != nil {
			t.walkExpr(n.Argument, s)
		}
	case *ast.IfStatement:
		promoted := t.ifPromoted(n, s)
		for name := range promoted {
			markAssigned(s, name)
		}
	case *ast.WhileStatement:
		t.walkExpr(n.Test, s)
		loopScope := newScope(ScopeLoop, s)
		t.walkStatements(n.Body.Body, loopScope)
	case *ast.DoWhileStatement:
		loopScope := newScope(ScopeDoWhile, s)
		t.walkStatements(n.Body.Body, loopScope)
		t.walkExpr(n.Test, loopScope)
		propagateAlways(loopScope, s)
	case *ast.ForStatement:
		forScope := newScope(ScopeBlock, s)
		if n.Init != nil {
			t.walkStatement(n.Init, forScope)
		}
		if n.Test != nil {
			t.walkExpr(n.Test, forScope)
		}
		bodyScope := newScope(ScopeLoop, forScope)
		t.walkStatements(n.Body.Body, bodyScope)
		if n.Update != nil {
			t.walkExpr(n.Update, bodyScope)
		}
		propagateAlways(forScope, s)
	case *ast.ForInStatement:
		// rejected by the rewriter; walk the iterated expression for
		// completeness of diagnostics ordering.
		t.walkExpr(n.Right, s)
	case *ast.SwitchStatement:
		t.walkExpr(n.Discriminant, s)
		var caseSets []map[string]bool
		hasDefault := false
		for _, c := range n.Cases {
			if c.Test != nil {
				t.walkExpr(c.Test, s)
			} else {
				hasDefault = true
			}
			caseScope := newScope(ScopeSwitchCase, s)
			t.walkStatements(c.Body.Body, caseScope)
			// An empty case body (a bare `case N:` falling through to the
			// next case) is not its own branch (spec.md §4.2: "each
			// non-empty case is a branch"); including its always-empty
			// promoted set here would spuriously suppress promotion for
			// every name the other, non-empty cases do promote.
			if len(c.Body.Body) == 0 {
				continue
			}
			caseSets = append(caseSets, caseScope.promoted)
		}
		if hasDefault && len(caseSets) > 0 {
			merged := caseSets[0]
			for _, cs := range caseSets[1:] {
				merged = intersect(merged, cs)
			}
			for name := range merged {
				markAssigned(s, name)
			}
		}
	case *ast.ThrowStatement:
		if n.Argument != nil {
			t.walkExpr(n.Argument, s)
		}
	case *ast.TryStatement:
		tryScope := newScope(ScopeBlock, s)
		t.walkStatements(n.Block.Body, tryScope)
		if n.Handler != nil {
			handlerScope := newScope(ScopeBlock, s)
			if n.Handler.Param != nil {
				handlerScope.declare(n.Handler.Param.Name, true, false)
			}
			if n.Handler.Body != nil {
				t.walkStatements(n.Handler.Body.Body, handlerScope)
			}
		}
		if n.Finally != nil {
			finallyScope := newScope(ScopeBlock, s)
			t.walkStatements(n.Finally.Body, finallyScope)
		}
	case *ast.WithStatement:
		t.walkExpr(n.Object, s)
	case *ast.FunctionDeclaration:
		s.declare(n.Id.Name, true, false)
		t.walkFunctionBody(n.Params, n.Body, s)
	case *ast.ClassDeclaration:
		s.declare(n.Id.Name, true, false)
		for _, m := range n.Methods {
			t.walkFunctionBody(m.Params, m.Body, s)
		}
	case *ast.BreakStatement, *ast.ContinueStatement:
		// no identifiers
	}
}

// ifPromoted reports the names (declared outside the if-statement) that
// are guaranteed initialized, relative to s, after the whole statement
// runs: only those assigned on every path, which for an if-statement
// means both the consequent and a covering alternate. An if without an
// else never promotes, since the consequent might not run at all.
func (t *Tracker) ifPromoted(n *ast.IfStatement, s *scope) map[string]bool {
	t.walkExpr(n.Test, s)
	consScope := newScope(ScopeIfBranch, s)
	t.walkStatements(n.Consequent.Body, consScope)
	if n.Alternate == nil {
		return map[string]bool{}
	}
	var altPromoted map[string]bool
	switch alt := n.Alternate.(type) {
	case *ast.BlockStatement:
		altScope := newScope(ScopeIfBranch, s)
		t.walkStatements(alt.Body, altScope)
		altPromoted = altScope.promoted
	case *ast.IfStatement:
		altPromoted = t.ifPromoted(alt, s)
	default:
		altPromoted = map[string]bool{}
	}
	return intersect(consScope.promoted, altPromoted)
}

func (t *Tracker) walkFunctionBody(params []*ast.Identifier, body *ast.BlockStatement, outer *scope) {
	fnScope := newScope(ScopeFunction, outer)
	for _, p := range params {
		fnScope.declare(p.Name, true, false)
	}
	if body != nil {
		t.walkStatements(body.Body, fnScope)
	}
}

func (t *Tracker) walkExpr(expr ast.Expression, s *scope) {
	switch n := expr.(type) {
	case *ast.Identifier:
		if init, found := s.lookup(n.Name); found && !init {
			t.accum.Errorf(n.LineNo, "You must initialize the variable '%s' before use.", n.Name)
		}
	case *ast.BinaryExpression:
		t.walkExpr(n.Left, s)
		t.walkExpr(n.Right, s)
	case *ast.LogicalExpression:
		t.walkExpr(n.Left, s)
		t.walkExpr(n.Right, s)
	case *ast.ConditionalExpression:
		t.walkExpr(n.Test, s)
		t.walkExpr(n.Consequent, s)
		t.walkExpr(n.Alternate, s)
	case *ast.UnaryExpression:
		t.walkExpr(n.Argument, s)
	case *ast.UpdateExpression:
		if id, ok := n.Argument.(*ast.Identifier); ok && s.isConst(id.Name) {
			t.accum.Errorf(id.LineNo, "'%s' is constant and cannot be reassigned.", id.Name)
		}
		t.walkExpr(n.Argument, s)
	case *ast.AssignmentExpression:
		t.walkExpr(n.Right, s)
		if id, ok := n.Left.(*ast.Identifier); ok {
			if s.isConst(id.Name) {
				t.accum.Errorf(id.LineNo, "'%s' is constant and cannot be reassigned.", id.Name)
			} else {
				markAssigned(s, id.Name)
			}
		} else {
			t.walkExpr(n.Left, s)
		}
	case *ast.SequenceExpression:
		for _, e := range n.Expressions {
			t.walkExpr(e, s)
		}
	case *ast.MemberExpression:
		t.walkExpr(n.Object, s)
		if n.Computed {
			t.walkExpr(n.Property, s)
		}
	case *ast.CallExpression:
		t.walkExpr(n.Callee, s)
		for _, a := range n.Arguments {
			t.walkExpr(a, s)
		}
	case *ast.NewExpression:
		t.walkExpr(n.Callee, s)
		for _, a := range n.Arguments {
			t.walkExpr(a, s)
		}
	case *ast.ArrayLiteral:
		for _, e := range n.Elements {
			t.walkExpr(e, s)
		}
	case *ast.ObjectLiteral:
		for _, p := range n.Properties {
			t.walkExpr(p.Value, s)
		}
	case *ast.FunctionExpression:
		t.walkFunctionBody(n.Params, n.Body, s)
	}
}
