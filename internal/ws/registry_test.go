package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	t.Run("BindAndResolve", func(t *testing.T) {
		r := NewRegistry()
		sess := NewSession(nil)

		_, ok := r.Resolve(sess)
		assert.False(t, ok)

		r.Bind(sess, 1)
		userID, ok := r.Resolve(sess)
		assert.True(t, ok)
		assert.Equal(t, int64(1), userID)
	})

	t.Run("MultipleSessionsPerUser", func(t *testing.T) {
		r := NewRegistry()
		tab := NewSession(nil)
		phone := NewSession(nil)

		r.Bind(tab, 1)
		r.Bind(phone, 1)
		assert.Len(t, r.SessionsForUser(1), 2)

		r.Unbind(tab)
		assert.Len(t, r.SessionsForUser(1), 1)

		r.Unbind(phone)
		assert.Empty(t, r.SessionsForUser(1))
	})

	t.Run("UnbindUnknownIsNoop", func(t *testing.T) {
		r := NewRegistry()

		_, ok := r.Unbind(NewSession(nil))
		assert.False(t, ok)
	})

	t.Run("RebindMovesSession", func(t *testing.T) {
		r := NewRegistry()
		sess := NewSession(nil)

		r.Bind(sess, 1)
		r.Bind(sess, 2)

		userID, ok := r.Resolve(sess)
		assert.True(t, ok)
		assert.Equal(t, int64(2), userID)
		assert.Empty(t, r.SessionsForUser(1))
		assert.Len(t, r.SessionsForUser(2), 1)
	})
}

func TestSessionEnqueue(t *testing.T) {
	sess := NewSession(nil)

	assert.True(t, sess.Enqueue([]byte("a")))

	sess.Close()
	assert.False(t, sess.Enqueue([]byte("b")))
	// double close must not panic
	sess.Close()
}
