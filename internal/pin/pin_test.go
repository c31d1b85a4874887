package pin

import "testing"

func TestPathMethod(t *testing.T) {
	cases := []struct {
		name string
		p    Pin
		want string
	}{
		{
			name: "instance method",
			p:    Pin{Kind: KindMethod, Namespace: "A::B", Name: "m", Scope: ScopeInstance},
			want: "A::B#m",
		},
		{
			name: "class method",
			p:    Pin{Kind: KindMethod, Namespace: "A::B", Name: "m", Scope: ScopeClass},
			want: "A::B.m",
		},
		{
			name: "top-level constant",
			p:    Pin{Kind: KindConstant, Namespace: "", Name: "VERSION"},
			want: "VERSION",
		},
		{
			name: "nested namespace",
			p:    Pin{Kind: KindNamespace, Namespace: "A", Name: "B"},
			want: "A::B",
		},
		{
			name: "instance variable",
			p:    Pin{Kind: KindInstanceVariable, Namespace: "A", Name: "x"},
			want: "A#x",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.p.Path(); got != c.want {
				t.Errorf("Path() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestLabelDistinguishesScope(t *testing.T) {
	instance := Pin{Kind: KindMethod, Namespace: "A", Name: "m", Scope: ScopeInstance}
	class := Pin{Kind: KindMethod, Namespace: "A", Name: "m", Scope: ScopeClass}
	if instance.Label() == class.Label() {
		t.Errorf("instance and class method labels should differ, both got %q", instance.Label())
	}
	if instance.Label() != "A#m" || class.Label() != "A.m" {
		t.Errorf("got labels %q / %q", instance.Label(), class.Label())
	}
}

func TestIdentityCollapsesEqualTuples(t *testing.T) {
	a := Pin{Kind: KindMethod, Namespace: "A", Name: "m", Scope: ScopeInstance, Filename: "one.rb"}
	b := Pin{Kind: KindMethod, Namespace: "A", Name: "m", Scope: ScopeInstance, Filename: "two.rb"}
	if a.Identity() != b.Identity() {
		t.Errorf("pins with equal (kind, namespace, name, scope) should share identity regardless of filename")
	}

	c := Pin{Kind: KindMethod, Namespace: "A", Name: "m", Scope: ScopeClass, Filename: "one.rb"}
	if a.Identity() == c.Identity() {
		t.Errorf("differing scope should produce distinct identities")
	}
}

func TestKindScopeVisibilityStrings(t *testing.T) {
	if KindMethod.String() != "method" {
		t.Errorf("KindMethod.String() = %q", KindMethod.String())
	}
	if ScopeClass.String() != "class" {
		t.Errorf("ScopeClass.String() = %q", ScopeClass.String())
	}
	if Private.String() != "private" {
		t.Errorf("Private.String() = %q", Private.String())
	}
}
