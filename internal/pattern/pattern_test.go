package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompile_LiteralExactMatch(t *testing.T) {
	c := Compile("/user")
	assert.True(t, c.Matches("/user"))
	assert.False(t, c.Matches("/user/profile"))
	assert.False(t, c.Matches("/api/user"))
}

func TestCompile_SingleCharWildcard(t *testing.T) {
	c := Compile("/user/?")
	assert.True(t, c.Matches("/user/a"))
	assert.False(t, c.Matches("/user/ab"))
	assert.False(t, c.Matches("/user/"))
}

func TestCompile_SingleSegmentStar(t *testing.T) {
	c := Compile("/user/*")
	assert.True(t, c.Matches("/user/123"))
	assert.True(t, c.Matches("/user/"))
	assert.False(t, c.Matches("/user/123/profile"))
}

func TestCompile_DoubleStarMatchesZeroOrMoreSegments(t *testing.T) {
	c := Compile("/static/**")
	assert.True(t, c.Matches("/static/"))
	assert.False(t, c.Matches("/static"))
	assert.True(t, c.Matches("/static/a/b/c.js"))
	assert.False(t, c.Matches("/api/static"))
}

func TestCompile_NamedVariable(t *testing.T) {
	c := Compile("/user/{id}")
	vars := c.Extract("/user/42")
	assert.Equal(t, map[string]string{"id": "42"}, vars)
	assert.Nil(t, c.Extract("/user/42/profile"))
}

func TestCompile_NamedVariableWithRegex(t *testing.T) {
	c := Compile("/user/{id:[0-9]+}")
	assert.NotNil(t, c.Extract("/user/42"))
	assert.Nil(t, c.Extract("/user/abc"))
}

func TestCompile_MultipleVariables(t *testing.T) {
	c := Compile("/tenants/{tenant}/users/{id}")
	vars := c.Extract("/tenants/acme/users/7")
	assert.Equal(t, map[string]string{"tenant": "acme", "id": "7"}, vars)
}

func TestCompile_CacheReusesCompiledPattern(t *testing.T) {
	a := Compile("/cache/{x}")
	b := Compile("/cache/{x}")
	assert.Same(t, a, b)
}

func TestCompile_LiteralEscaping(t *testing.T) {
	c := Compile("/api/v1.0")
	assert.True(t, c.Matches("/api/v1.0"))
	assert.False(t, c.Matches("/api/v1X0"))
}

func TestHasVariablesOrWildcards(t *testing.T) {
	assert.False(t, HasVariablesOrWildcards("/user/profile"))
	assert.True(t, HasVariablesOrWildcards("/user/{id}"))
	assert.True(t, HasVariablesOrWildcards("/user/*"))
	assert.True(t, HasVariablesOrWildcards("/user/?"))
}
