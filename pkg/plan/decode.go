package plan

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/goxq/pkg/expr"
	"github.com/sandrolain/goxq/pkg/nav"
	"github.com/sandrolain/goxq/pkg/types"
)

type decoder struct {
	scopes    []map[string]*expr.Var
	externals []*expr.Var
}

func newDecoder() *decoder {
	return &decoder{scopes: []map[string]*expr.Var{{}}}
}

func fail(n *yaml.Node, format string, args ...any) error {
	return &Error{Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)}
}

func (d *decoder) push(vars ...*expr.Var) {
	scope := make(map[string]*expr.Var, len(vars))
	for _, v := range vars {
		scope[v.Name] = v
	}
	d.scopes = append(d.scopes, scope)
}

func (d *decoder) pop() {
	d.scopes = d.scopes[:len(d.scopes)-1]
}

// lookup resolves a variable name. Unbound names are declared as externals
// in the outermost scope.
func (d *decoder) lookup(name string) *expr.Var {
	for i := len(d.scopes) - 1; i >= 0; i-- {
		if v, ok := d.scopes[i][name]; ok {
			return v
		}
	}
	v := expr.NewVar(name)
	d.scopes[0][name] = v
	d.externals = append(d.externals, v)
	return v
}

// mapping gives keyed access to a mapping node.
type mapping struct {
	node *yaml.Node
	keys []string
	vals map[string]*yaml.Node
}

func newMapping(n *yaml.Node) (*mapping, error) {
	m := &mapping{node: n, vals: make(map[string]*yaml.Node, len(n.Content)/2)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		if _, dup := m.vals[k]; dup {
			return nil, fail(n.Content[i], "duplicate key %q", k)
		}
		if k != "at" {
			m.keys = append(m.keys, k)
		}
		m.vals[k] = n.Content[i+1]
	}
	if len(m.keys) == 0 {
		return nil, fail(n, "mapping without expression key")
	}
	return m, nil
}

// heads are the keys that select an expression, besides the operators.
var heads = map[string]bool{
	"int": true, "dec": true, "dbl": true, "str": true, "bool": true, "untyped": true,
	"var": true, "ctx": true, "root": true, "and": true, "or": true, "to": true,
	"if": true, "switch": true, "try": true, "for": true, "let": true, "call": true,
	"function": true, "dyncall": true, "path": true, "filter": true,
}

// head returns the key that selects the expression.
func (m *mapping) head() string {
	for _, k := range m.keys {
		if _, ok := types.ParseCalc(k); ok {
			return k
		}
		if _, ok := types.ParseCmpOp(k); ok {
			return k
		}
		if heads[k] {
			return k
		}
	}
	return m.keys[0]
}

func (m *mapping) get(key string) (*yaml.Node, bool) {
	v, ok := m.vals[key]
	return v, ok
}

func (m *mapping) need(key string) (*yaml.Node, error) {
	v, ok := m.vals[key]
	if !ok {
		return nil, fail(m.node, "%s: missing key %q", m.head(), key)
	}
	return v, nil
}

// pos returns the source position given by the "at" key, or -1.
func (m *mapping) pos() (int, error) {
	v, ok := m.vals["at"]
	if !ok {
		return -1, nil
	}
	p, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, fail(v, "invalid position %q", v.Value)
	}
	return p, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func (d *decoder) expr(n *yaml.Node) (expr.Expr, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		v, err := scalar(n)
		if err != nil {
			return nil, err
		}
		return expr.NewValue(-1, v), nil
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return expr.NewValue(-1, types.Empty), nil
		}
		exprs, err := d.exprs(n)
		if err != nil {
			return nil, err
		}
		return expr.NewList(-1, exprs...), nil
	case yaml.MappingNode:
		m, err := newMapping(n)
		if err != nil {
			return nil, err
		}
		return d.mapping(m)
	}
	return nil, fail(n, "unexpected node")
}

func (d *decoder) exprs(n *yaml.Node) ([]expr.Expr, error) {
	n = resolve(n)
	if n.Kind != yaml.SequenceNode {
		e, err := d.expr(n)
		if err != nil {
			return nil, err
		}
		return []expr.Expr{e}, nil
	}
	out := make([]expr.Expr, len(n.Content))
	for i, c := range n.Content {
		e, err := d.expr(c)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (d *decoder) pair(m *mapping, n *yaml.Node) (expr.Expr, expr.Expr, error) {
	ops, err := d.exprs(n)
	if err != nil {
		return nil, nil, err
	}
	if len(ops) != 2 {
		return nil, nil, fail(n, "%s: two operands expected, %d found", m.head(), len(ops))
	}
	return ops[0], ops[1], nil
}

func scalar(n *yaml.Node) (types.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return types.Empty, nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, fail(n, "invalid integer %q", n.Value)
		}
		return types.Value{types.Int(i)}, nil
	case "!!float":
		if strings.ContainsAny(n.Value, "eEnN") {
			return atomic(n, "dbl")
		}
		return atomic(n, "dec")
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fail(n, "invalid boolean %q", n.Value)
		}
		return types.Value{types.Bln(b)}, nil
	}
	return types.Value{types.Str(n.Value)}, nil
}

// atomic decodes an explicitly typed literal.
func atomic(n *yaml.Node, kind string) (types.Value, error) {
	n = resolve(n)
	if n.Kind != yaml.ScalarNode {
		return nil, fail(n, "%s: scalar expected", kind)
	}
	s := n.Value
	switch kind {
	case "int":
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fail(n, "invalid integer %q", s)
		}
		return types.Value{types.Int(i)}, nil
	case "dec":
		dv, err := types.NewDec(s)
		if err != nil {
			return nil, fail(n, "invalid decimal %q", s)
		}
		return types.Value{dv}, nil
	case "dbl":
		switch strings.ToLower(s) {
		case ".nan", "nan":
			s = "NaN"
		case ".inf", "+.inf", "inf":
			s = "INF"
		case "-.inf", "-inf":
			s = "-INF"
		}
		f, err := types.ToDouble(types.Untyped(s))
		if err != nil {
			return nil, fail(n, "invalid double %q", s)
		}
		return types.Value{types.Dbl(f)}, nil
	case "untyped":
		return types.Value{types.Untyped(s)}, nil
	case "bool":
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fail(n, "invalid boolean %q", s)
		}
		return types.Value{types.Bln(b)}, nil
	}
	return types.Value{types.Str(s)}, nil
}

func (d *decoder) mapping(m *mapping) (expr.Expr, error) {
	pos, err := m.pos()
	if err != nil {
		return nil, err
	}
	key := m.head()
	val := m.vals[key]
	if calc, ok := types.ParseCalc(key); ok {
		l, r, err := d.pair(m, val)
		if err != nil {
			return nil, err
		}
		return expr.NewArith(pos, calc, l, r), nil
	}
	if op, ok := types.ParseCmpOp(key); ok {
		l, r, err := d.pair(m, val)
		if err != nil {
			return nil, err
		}
		return expr.NewCmpG(pos, l, r, op), nil
	}

	switch key {
	case "int", "dec", "dbl", "str", "bool", "untyped":
		v, err := atomic(val, key)
		if err != nil {
			return nil, err
		}
		return expr.NewValue(pos, v), nil
	case "var":
		return expr.NewVarRef(pos, d.lookup(val.Value)), nil
	case "ctx":
		return expr.NewContextValue(pos), nil
	case "root":
		return expr.NewRoot(pos), nil
	case "and", "or":
		ops, err := d.exprs(val)
		if err != nil {
			return nil, err
		}
		if key == "or" {
			return expr.NewOr(pos, ops...), nil
		}
		return expr.NewAnd(pos, ops...), nil
	case "to":
		l, r, err := d.pair(m, val)
		if err != nil {
			return nil, err
		}
		return expr.NewRange(pos, l, r), nil
	case "if":
		return d.ifExpr(m, pos)
	case "switch":
		return d.switchExpr(m, pos)
	case "try":
		return d.tryExpr(m, pos)
	case "for", "let":
		return d.binding(m, key, pos)
	case "call":
		return d.call(m, pos)
	case "function":
		return d.function(m, pos)
	case "dyncall":
		return d.dyncall(m, pos)
	case "path":
		return d.path(m, pos)
	case "filter":
		return d.filter(m, pos)
	}
	return nil, fail(m.node, "unknown expression %q", key)
}

func (d *decoder) ifExpr(m *mapping, pos int) (expr.Expr, error) {
	cond, err := d.expr(m.vals["if"])
	if err != nil {
		return nil, err
	}
	tn, err := m.need("then")
	if err != nil {
		return nil, err
	}
	then, err := d.expr(tn)
	if err != nil {
		return nil, err
	}
	var els expr.Expr = expr.NewValue(pos, types.Empty)
	if en, ok := m.get("else"); ok {
		if els, err = d.expr(en); err != nil {
			return nil, err
		}
	}
	return expr.NewIf(pos, cond, then, els), nil
}

func (d *decoder) switchExpr(m *mapping, pos int) (expr.Expr, error) {
	cond, err := d.expr(m.vals["switch"])
	if err != nil {
		return nil, err
	}
	var groups []*expr.SwitchGroup
	if cn, ok := m.get("cases"); ok {
		cn = resolve(cn)
		if cn.Kind != yaml.SequenceNode {
			return nil, fail(cn, "switch: cases must be a sequence")
		}
		for _, gn := range cn.Content {
			gm, err := newMapping(resolve(gn))
			if err != nil {
				return nil, err
			}
			wn, err := gm.need("case")
			if err != nil {
				return nil, err
			}
			cases, err := d.exprs(wn)
			if err != nil {
				return nil, err
			}
			if len(cases) == 0 {
				return nil, fail(wn, "switch: case group without values")
			}
			rn, err := gm.need("return")
			if err != nil {
				return nil, err
			}
			ret, err := d.expr(rn)
			if err != nil {
				return nil, err
			}
			groups = append(groups, &expr.SwitchGroup{Cases: cases, Return: ret})
		}
	}
	dn, err := m.need("default")
	if err != nil {
		return nil, err
	}
	def, err := d.expr(dn)
	if err != nil {
		return nil, err
	}
	groups = append(groups, &expr.SwitchGroup{Return: def})
	sw, err := expr.NewSwitch(pos, cond, groups...)
	if err != nil {
		return nil, err
	}
	return sw, nil
}

func (d *decoder) tryExpr(m *mapping, pos int) (expr.Expr, error) {
	e, err := d.expr(m.vals["try"])
	if err != nil {
		return nil, err
	}
	cn, err := m.need("catch")
	if err != nil {
		return nil, err
	}
	cn = resolve(cn)
	if cn.Kind != yaml.SequenceNode {
		cn = &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{cn}, Line: cn.Line, Column: cn.Column}
	}
	var catches []*expr.Catch
	for _, c := range cn.Content {
		cm, err := newMapping(resolve(c))
		if err != nil {
			return nil, err
		}
		var tests []types.NameTest
		if codes, ok := cm.get("codes"); ok {
			var names []string
			if err := resolve(codes).Decode(&names); err != nil {
				var one string
				if err := codes.Decode(&one); err != nil {
					return nil, fail(codes, "catch: list of name tests expected")
				}
				names = []string{one}
			}
			for _, s := range names {
				tests = append(tests, types.ParseNameTest(s))
			}
		} else {
			tests = []types.NameTest{types.AnyName}
		}
		rn, err := cm.need("return")
		if err != nil {
			return nil, err
		}
		placeholder := expr.NewCatch(tests, nil)
		d.push(placeholder.Code, placeholder.Desc, placeholder.Val)
		ret, err := d.expr(rn)
		d.pop()
		if err != nil {
			return nil, err
		}
		placeholder.Expr = ret
		catches = append(catches, placeholder)
	}
	return expr.NewTry(pos, e, catches...), nil
}

func (d *decoder) binding(m *mapping, key string, pos int) (expr.Expr, error) {
	name := m.vals[key].Value
	if name == "" {
		return nil, fail(m.vals[key], "%s: variable name expected", key)
	}
	bindKey := "in"
	if key == "let" {
		bindKey = "be"
	}
	bn, err := m.need(bindKey)
	if err != nil {
		return nil, err
	}
	bound, err := d.expr(bn)
	if err != nil {
		return nil, err
	}
	rn, err := m.need("return")
	if err != nil {
		return nil, err
	}
	v := expr.NewVar(name)
	d.push(v)
	ret, err := d.expr(rn)
	d.pop()
	if err != nil {
		return nil, err
	}
	if key == "let" {
		return expr.NewLet(pos, v, bound, ret), nil
	}
	return expr.NewFor(pos, v, bound, ret), nil
}

func (d *decoder) call(m *mapping, pos int) (expr.Expr, error) {
	name := m.vals["call"].Value
	var args []expr.Expr
	if an, ok := m.get("args"); ok {
		var err error
		if args, err = d.exprs(an); err != nil {
			return nil, err
		}
	}
	f, err := expr.NewFunc(name, pos, args...)
	if err != nil {
		return nil, fail(m.node, "%v", err)
	}
	return f, nil
}

func (d *decoder) function(m *mapping, pos int) (expr.Expr, error) {
	var names []string
	if err := resolve(m.vals["function"]).Decode(&names); err != nil {
		return nil, fail(m.vals["function"], "function: list of parameter names expected")
	}
	params := make([]*expr.Var, len(names))
	for i, n := range names {
		params[i] = expr.NewVar(n)
	}
	bn, err := m.need("body")
	if err != nil {
		return nil, err
	}
	d.push(params...)
	body, err := d.expr(bn)
	d.pop()
	if err != nil {
		return nil, err
	}
	return expr.NewClosure(pos, params, body), nil
}

func (d *decoder) dyncall(m *mapping, pos int) (expr.Expr, error) {
	fn, err := d.expr(m.vals["dyncall"])
	if err != nil {
		return nil, err
	}
	var args []expr.Expr
	if an, ok := m.get("args"); ok {
		if args, err = d.exprs(an); err != nil {
			return nil, err
		}
	}
	return expr.NewDynFuncCall(pos, fn, args...), nil
}

var kindTests = map[string]types.Type{
	"node()":                   types.TypeNode,
	"text()":                   types.TypeText,
	"element()":                types.TypeElement,
	"attribute()":              types.TypeAttribute,
	"comment()":                types.TypeComment,
	"processing-instruction()": types.TypePI,
	"document-node()":          types.TypeDocument,
}

func (d *decoder) path(m *mapping, pos int) (expr.Expr, error) {
	var root expr.Expr
	if rn := resolve(m.vals["path"]); rn.ShortTag() != "!!null" {
		var err error
		if root, err = d.expr(rn); err != nil {
			return nil, err
		}
	}
	sn, err := m.need("steps")
	if err != nil {
		return nil, err
	}
	sn = resolve(sn)
	if sn.Kind != yaml.SequenceNode || len(sn.Content) == 0 {
		return nil, fail(sn, "path: non-empty list of steps expected")
	}
	steps := make([]*expr.Step, len(sn.Content))
	for i, s := range sn.Content {
		if steps[i], err = d.step(resolve(s)); err != nil {
			return nil, err
		}
	}
	return expr.NewPath(pos, root, steps...), nil
}

func (d *decoder) step(n *yaml.Node) (*expr.Step, error) {
	m, err := newMapping(n)
	if err != nil {
		return nil, err
	}
	pos, err := m.pos()
	if err != nil {
		return nil, err
	}
	axis := nav.AxisChild
	if an, ok := m.get("axis"); ok {
		if axis, ok = nav.ParseAxis(an.Value); !ok {
			return nil, fail(an, "unknown axis %q", an.Value)
		}
	}
	test := expr.AnyNode
	if tn, ok := m.get("test"); ok {
		if t, ok := kindTests[tn.Value]; ok {
			test = expr.NodeTest{Type: t}
		} else {
			test = expr.NameTest(axis, tn.Value)
		}
	}
	var preds []expr.Expr
	if wn, ok := m.get("where"); ok {
		if preds, err = d.exprs(wn); err != nil {
			return nil, err
		}
	}
	return expr.NewStep(pos, axis, test, preds...), nil
}

func (d *decoder) filter(m *mapping, pos int) (expr.Expr, error) {
	root, err := d.expr(m.vals["filter"])
	if err != nil {
		return nil, err
	}
	wn, err := m.need("where")
	if err != nil {
		return nil, err
	}
	preds, err := d.exprs(wn)
	if err != nil {
		return nil, err
	}
	return expr.NewFilter(pos, root, preds...), nil
}
