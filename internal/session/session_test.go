package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New(30 * time.Minute)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, s.CreationTime, s.LastAccessedTime)
	assert.Equal(t, 30*time.Minute, s.MaxInactiveInterval)
	assert.Empty(t, s.AttributeNames())
	assert.Equal(t, time.UTC, s.CreationTime.Location())
	assert.Zero(t, s.CreationTime.Nanosecond()%int(time.Millisecond))

	other := New(30 * time.Minute)
	assert.NotEqual(t, s.ID, other.ID)
}

func TestAttributes(t *testing.T) {
	s := New(time.Minute)

	s.SetAttribute("uid", "abc")
	s.SetAttribute("count", 3)

	v, ok := s.GetAttribute("uid")
	require.True(t, ok)
	assert.Equal(t, "abc", v)
	assert.Equal(t, []string{"count", "uid"}, s.AttributeNames())

	s.SetAttribute("uid", nil)
	_, ok = s.GetAttribute("uid")
	assert.False(t, ok)

	s.RemoveAttribute("count")
	assert.Empty(t, s.AttributeNames())
}

func TestPrincipalName(t *testing.T) {
	s := New(time.Minute)
	assert.Empty(t, s.PrincipalName())

	s.SetPrincipalName("user")
	assert.Equal(t, "user", s.PrincipalName())
	assert.Contains(t, s.AttributeNames(), PrincipalNameAttribute)

	s.SetPrincipalName("")
	assert.Empty(t, s.PrincipalName())
	assert.Empty(t, s.AttributeNames())
}

func TestIsExpired(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		maxInactive time.Duration
		now         time.Time
		want        bool
	}{
		{"fresh", time.Minute, base.Add(30 * time.Second), false},
		{"boundary", time.Minute, base.Add(time.Minute), true},
		{"stale", time.Minute, base.Add(2 * time.Minute), true},
		{"never expires", 0, base.Add(24 * time.Hour), false},
		{"negative never expires", -time.Second, base.Add(24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{ID: "s", LastAccessedTime: base, MaxInactiveInterval: tt.maxInactive}
			assert.Equal(t, tt.want, s.IsExpired(tt.now))
		})
	}
}

func TestExpiresAt(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	s := &Session{LastAccessedTime: base, MaxInactiveInterval: time.Minute}
	assert.Equal(t, base.Add(time.Minute), s.ExpiresAt())

	s.MaxInactiveInterval = 0
	assert.True(t, s.ExpiresAt().IsZero())
}

func TestClone(t *testing.T) {
	s := New(time.Minute)
	s.SetAttribute("nested", map[string]any{"a": "b"})

	c, err := s.Clone()
	require.NoError(t, err)
	assert.Equal(t, s.ID, c.ID)

	c.SetAttribute("extra", true)
	c.Attributes["nested"].(map[string]any)["a"] = "changed"

	_, ok := s.GetAttribute("extra")
	assert.False(t, ok)
	assert.Equal(t, "b", s.Attributes["nested"].(map[string]any)["a"])
}

func TestCloneRejectsUnencodableAttributes(t *testing.T) {
	s := New(time.Minute)
	s.SetAttribute("ch", make(chan int))

	_, err := s.Clone()
	assert.Error(t, err)
}

func TestSortByCreation(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions := []*Session{
		{ID: "c", CreationTime: base.Add(2 * time.Second)},
		{ID: "b", CreationTime: base},
		{ID: "a", CreationTime: base},
	}

	sortByCreation(sessions)

	ids := []string{sessions[0].ID, sessions[1].ID, sessions[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
