package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRule_DefaultsStrategy(t *testing.T) {
	r, err := NewRule([]string{"/api"}, []string{"http://up"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "round_robin", r.Strategy)
}

func TestNewRule_RejectsEmptyPatternsOrUpstreams(t *testing.T) {
	_, err := NewRule(nil, []string{"http://up"}, "round_robin", nil)
	assert.Error(t, err)

	_, err = NewRule([]string{"/api"}, nil, "round_robin", nil)
	assert.Error(t, err)
}

func TestTable_LongestLiteralWins(t *testing.T) {
	short, err := NewRule([]string{"/api"}, []string{"http://a"}, "round_robin", nil)
	require.NoError(t, err)
	long, err := NewRule([]string{"/api/v1"}, []string{"http://b"}, "round_robin", nil)
	require.NoError(t, err)

	table := NewTable([]*Rule{short, long})
	matched, _ := table.Match("/api/v1/users")
	assert.Same(t, long, matched)
}

func TestTable_PatternOutscoresLongerLiteral(t *testing.T) {
	literal, err := NewRule([]string{"/api/v1-users-profile-settings"}, []string{"http://a"}, "round_robin", nil)
	require.NoError(t, err)
	withVar, err := NewRule([]string{"/api/{rest}"}, []string{"http://b"}, "round_robin", nil)
	require.NoError(t, err)

	table := NewTable([]*Rule{literal, withVar})
	matched, vars := table.Match("/api/v1-users-profile-settings")
	assert.Same(t, withVar, matched)
	assert.Equal(t, "v1-users-profile-settings", vars["rest"])
}

func TestTable_TiesBreakByConfigOrder(t *testing.T) {
	first, err := NewRule([]string{"/same"}, []string{"http://a"}, "round_robin", nil)
	require.NoError(t, err)
	second, err := NewRule([]string{"/same"}, []string{"http://b"}, "round_robin", nil)
	require.NoError(t, err)

	table := NewTable([]*Rule{first, second})
	matched, _ := table.Match("/same")
	assert.Same(t, first, matched)
}

func TestTable_NoMatch(t *testing.T) {
	r, err := NewRule([]string{"/api"}, []string{"http://a"}, "round_robin", nil)
	require.NoError(t, err)
	table := NewTable([]*Rule{r})
	matched, _ := table.Match("/other")
	assert.Nil(t, matched)
}

func TestNewRule_ParsesWeightSuffix(t *testing.T) {
	r, err := NewRule([]string{"/api"}, []string{"http://a;weight=2", "http://b"}, "weighted_random", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, r.Upstreams)
	assert.Equal(t, []int{2, 1}, r.Weights)
}

func TestRule_ForwardPath(t *testing.T) {
	r, err := NewRule([]string{"/api/{id}"}, []string{"http://a"}, "round_robin", nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/42", r.ForwardPath("/api/42"))

	r2, err := NewRule([]string{"/api"}, []string{"http://a"}, "round_robin", nil)
	require.NoError(t, err)
	assert.Equal(t, "/profile", r2.ForwardPath("/api/profile"))
	assert.Equal(t, "/", r2.ForwardPath("/api"))
}

func TestRule_ForwardPath_StripsMatchingLiteralAmongSeveral(t *testing.T) {
	r, err := NewRule([]string{"/v2", "/user"}, []string{"http://a"}, "round_robin", nil)
	require.NoError(t, err)
	assert.Equal(t, "/profile", r.ForwardPath("/user/profile"))
	assert.Equal(t, "/detail", r.ForwardPath("/v2/detail"))
}
