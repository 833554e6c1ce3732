package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReplier captures private replies for assertions.
type recordingReplier struct {
	replies []string
	err     error
}

func (r *recordingReplier) ReplyPrivate(_ context.Context, text string) error {
	r.replies = append(r.replies, text)
	return r.err
}

func TestIsModerator(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want bool
	}{
		{
			name: "has moderator role",
			id:   Resolved("@amy:example.org", []string{"moderator"}),
			want: true,
		},
		{
			name: "moderator among other roles",
			id:   Resolved("@amy:example.org", []string{"dj", "moderator", "member"}),
			want: true,
		},
		{
			name: "lacks moderator role",
			id:   Resolved("@bob:example.org", []string{"member"}),
			want: false,
		},
		{
			name: "empty role set",
			id:   Resolved("@bob:example.org", nil),
			want: false,
		},
		{
			name: "unresolved context fails closed",
			id:   Unresolved("@eve:example.org"),
			want: false,
		},
		{
			name: "unresolved fails closed even with roles set",
			id:   Identity{UserID: "@eve:example.org", Roles: []string{"moderator"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsModerator(tt.id, "moderator"))
		})
	}
}

func TestGuard_Check_Allowed(t *testing.T) {
	guard := NewGuard("moderator")
	replier := &recordingReplier{}

	ok := guard.Check(context.Background(), Resolved("@amy:example.org", []string{"moderator"}), replier)

	assert.True(t, ok)
	assert.Empty(t, replier.replies, "allow path must send nothing")
}

func TestGuard_Check_Denied(t *testing.T) {
	guard := NewGuard("moderator")
	replier := &recordingReplier{}

	ok := guard.Check(context.Background(), Resolved("@bob:example.org", []string{"member"}), replier)

	assert.False(t, ok)
	require.Len(t, replier.replies, 1, "denial sends exactly one reply")
	assert.Equal(t, DenialMessage, replier.replies[0])
}

func TestGuard_Check_DeniedUnresolved(t *testing.T) {
	guard := NewGuard("moderator")
	replier := &recordingReplier{}

	ok := guard.Check(context.Background(), Unresolved("@eve:example.org"), replier)

	assert.False(t, ok)
	require.Len(t, replier.replies, 1)
	assert.Equal(t, DenialMessage, replier.replies[0])
}

func TestGuard_Check_ReplyFailureStillDenies(t *testing.T) {
	guard := NewGuard("moderator")
	replier := &recordingReplier{err: errors.New("room gone")}

	ok := guard.Check(context.Background(), Resolved("@bob:example.org", nil), replier)

	assert.False(t, ok, "a failed denial send must not open the gate")
}
