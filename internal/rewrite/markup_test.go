package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeMarkup(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"component with attributes", `return <App        title="home" />;`, true},
		{"self closing tag", `const el = <br/>;`, true},
		{"nested markup", `return (\n  <Layout footer>\n    {children}\n  </Layout>\n);`, true},
		{"plain module", `export function add(a, b) { return a + b; }`, false},
		{"comparison", `if (a<b) { return a; }`, false},
		{"arrow function", `const f = (x) => x * 2;`, false},
		{"string with tag-like content", `const s = "a <b c";`, true}, // known false positive
		{"empty", ``, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LooksLikeMarkup(tc.text))
		})
	}
}
