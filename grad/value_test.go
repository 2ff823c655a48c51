package grad

import (
	"math"
	"testing"
)

const eps = 1e-9

func almost(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Errorf("%s: expected %v, got %v", name, want, got)
	}
}

func TestAdd(t *testing.T) {
	a := NewValue(2)
	b := NewValue(3)
	c := a.Add(b)
	c.Backward()

	almost(t, "c.Data", c.Data, 5)
	almost(t, "a.Grad", a.Grad, 1)
	almost(t, "b.Grad", b.Grad, 1)
}

func TestMul(t *testing.T) {
	a := NewValue(2)
	b := NewValue(3)
	c := a.Mul(b)
	c.Backward()

	almost(t, "c.Data", c.Data, 6)
	almost(t, "a.Grad", a.Grad, 3)
	almost(t, "b.Grad", b.Grad, 2)
}

func TestDiv(t *testing.T) {
	a := NewValue(6)
	b := NewValue(2)
	c := a.Div(b)
	c.Backward()

	almost(t, "c.Data", c.Data, 3)
	almost(t, "a.Grad", a.Grad, 0.5)
	almost(t, "b.Grad", b.Grad, -1.5)
}

func TestDivByZeroPropagatesNonFinite(t *testing.T) {
	a := NewValue(1)
	b := NewValue(0)
	c := a.Div(b)
	c.Backward()

	if !math.IsInf(c.Data, 1) {
		t.Errorf("expected +Inf value, got %v", c.Data)
	}
	if !math.IsInf(a.Grad, 1) {
		t.Errorf("expected +Inf gradient for numerator, got %v", a.Grad)
	}
	if !math.IsInf(b.Grad, -1) {
		t.Errorf("expected -Inf gradient for divisor, got %v", b.Grad)
	}
}

func TestSub(t *testing.T) {
	a := NewValue(5)
	b := NewValue(3)
	c := a.Sub(b)
	c.Backward()

	almost(t, "c.Data", c.Data, 2)
	almost(t, "a.Grad", a.Grad, 1)
	almost(t, "b.Grad", b.Grad, -1)
}

func TestNeg(t *testing.T) {
	a := NewValue(4)
	c := a.Neg()
	c.Backward()

	almost(t, "c.Data", c.Data, -4)
	almost(t, "a.Grad", a.Grad, -1)
}

func TestPow(t *testing.T) {
	a := NewValue(2)
	b := a.PowFloat(3)
	b.Backward()

	almost(t, "b.Data", b.Data, 8)
	almost(t, "a.Grad", a.Grad, 12) // 3*(2)^2 = 12
}

func TestPowValueExponent(t *testing.T) {
	a := NewValue(3)
	b := NewValue(2)
	c := a.Pow(b)
	c.Backward()

	almost(t, "c.Data", c.Data, 9)
	almost(t, "a.Grad", a.Grad, 6)              // 2*3^1
	almost(t, "b.Grad", b.Grad, 9*math.Log(3)) // 3^2 * ln(3)
}

func TestPowZeroBase(t *testing.T) {
	// Base partial is undefined at 0 for exponents below 1; the engine
	// contributes zero instead of blowing up.
	a := NewValue(0)
	b := NewValue(0.5)
	c := a.Pow(b)
	c.Backward()

	almost(t, "c.Data", c.Data, 0)
	almost(t, "a.Grad", a.Grad, 0)
	almost(t, "b.Grad", b.Grad, 0)
}

func TestPowNegativeBaseExponentPartial(t *testing.T) {
	// ln of a negative base is undefined, so the exponent receives no
	// contribution; the base partial is still well defined for integer
	// exponents.
	a := NewValue(-2)
	b := NewValue(3)
	c := a.Pow(b)
	c.Backward()

	almost(t, "c.Data", c.Data, -8)
	almost(t, "a.Grad", a.Grad, 12) // 3*(-2)^2
	almost(t, "b.Grad", b.Grad, 0)
}

func TestRelu(t *testing.T) {
	a := NewValue(-2)
	b := a.Relu()
	b.Backward()
	almost(t, "b.Data (negative side)", b.Data, 0)
	almost(t, "a.Grad (negative side)", a.Grad, 0)

	a = NewValue(2)
	b = a.Relu()
	b.Backward()
	almost(t, "b.Data (positive side)", b.Data, 2)
	almost(t, "a.Grad (positive side)", a.Grad, 1)
}

func TestLeakyRelu(t *testing.T) {
	a := NewValue(-2)
	b := a.LeakyRelu(0.1)
	b.Backward()
	almost(t, "b.Data (negative side)", b.Data, -0.2)
	almost(t, "a.Grad (negative side)", a.Grad, 0.1)

	a = NewValue(2)
	b = a.LeakyRelu(0.1)
	b.Backward()
	almost(t, "b.Data (positive side)", b.Data, 2)
	almost(t, "a.Grad (positive side)", a.Grad, 1)
}

func TestElu(t *testing.T) {
	a := NewValue(-1)
	b := a.Elu(1.0)
	b.Backward()
	almost(t, "b.Data (negative side)", b.Data, math.Exp(-1)-1)
	// Derivative on the negative side is alpha*e^x of the input.
	almost(t, "a.Grad (negative side)", a.Grad, math.Exp(-1))

	a = NewValue(2)
	b = a.Elu(1.0)
	b.Backward()
	almost(t, "b.Data (positive side)", b.Data, 2)
	almost(t, "a.Grad (positive side)", a.Grad, 1)
}

func TestSigmoid(t *testing.T) {
	a := NewValue(0)
	b := a.Sigmoid()
	b.Backward()

	almost(t, "b.Data", b.Data, 0.5)
	almost(t, "a.Grad", a.Grad, 0.25)
}

func TestTanh(t *testing.T) {
	a := NewValue(0)
	b := a.Tanh()
	b.Backward()
	almost(t, "b.Data at 0", b.Data, 0)
	almost(t, "a.Grad at 0", a.Grad, 1)

	a = NewValue(0.5)
	b = a.Tanh()
	b.Backward()
	want := math.Tanh(0.5)
	almost(t, "b.Data at 0.5", b.Data, want)
	almost(t, "a.Grad at 0.5", a.Grad, 1-want*want)
}

func TestExp(t *testing.T) {
	a := NewValue(1)
	b := a.Exp()
	b.Backward()

	almost(t, "b.Data", b.Data, math.E)
	almost(t, "a.Grad", a.Grad, math.E)
}

func TestLog(t *testing.T) {
	a := NewValue(2)
	b := a.Log()
	b.Backward()

	almost(t, "b.Data", b.Data, math.Log(2))
	almost(t, "a.Grad", a.Grad, 0.5)
}

func TestChainRule(t *testing.T) {
	a := NewValue(2)
	b := a.PowFloat(2).AddFloat(1)
	c := b.Relu()
	d := c.MulFloat(3)
	d.Backward()

	almost(t, "d.Data", d.Data, 15) // (2²+1)*3
	almost(t, "a.Grad", a.Grad, 12) // 3*(2*2)
}

func TestDiamondDependency(t *testing.T) {
	// x feeds two separate products that meet again at z; its gradient must
	// be the sum of both path-wise partials, never an overwrite.
	x := NewValue(4)
	y1 := x.MulFloat(2)
	y2 := x.MulFloat(3)
	z := y1.Add(y2)
	z.Backward()

	almost(t, "z.Data", z.Data, 20)
	almost(t, "x.Grad", x.Grad, 5)
}

func TestSameOperandTwice(t *testing.T) {
	a := NewValue(3)
	b := a.Add(a)
	b.Backward()

	almost(t, "b.Data", b.Data, 6)
	almost(t, "a.Grad", a.Grad, 2)
}

func TestSharedSubgraphOrdering(t *testing.T) {
	// c has two consumers (d and e's sum). Its own push into a and b must
	// happen only after both consumers have pushed into it, otherwise the
	// leaf gradients come out wrong.
	//
	// e = c + a*c with c = a + b, so de/da = 1 + c + a and de/db = 1 + a.
	a := NewValue(2)
	b := NewValue(3)
	c := a.Add(b)
	d := a.Mul(c)
	e := c.Add(d)
	e.Backward()

	almost(t, "e.Data", e.Data, 15)
	almost(t, "a.Grad", a.Grad, 8)
	almost(t, "b.Grad", b.Grad, 3)
}

func TestBackwardTwiceDoublesGradients(t *testing.T) {
	// Accumulation is the contract: without an explicit reset, a second
	// pass adds the same contributions again.
	a := NewValue(2)
	b := NewValue(3)
	c := a.Mul(b)
	c.Backward()
	c.Backward()

	almost(t, "a.Grad", a.Grad, 6)
	almost(t, "b.Grad", b.Grad, 4)
}

func TestRootGradOverwrittenNotAccumulated(t *testing.T) {
	a := NewValue(2)
	c := a.MulFloat(3)
	c.Grad = 42 // stale value from some earlier pass
	c.Backward()

	almost(t, "c.Grad", c.Grad, 1)
	almost(t, "a.Grad", a.Grad, 3)
}

func TestValues(t *testing.T) {
	vs := Values([]float64{1, 2, 3})
	if len(vs) != 3 {
		t.Fatalf("expected 3 values, got %d", len(vs))
	}
	for i, v := range vs {
		almost(t, "leaf data", v.Data, float64(i+1))
		almost(t, "leaf grad", v.Grad, 0)
		if len(v.Children) != 0 {
			t.Errorf("leaf %d should have no children, got %d", i, len(v.Children))
		}
	}
}
