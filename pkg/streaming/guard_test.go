package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/loom/pkg/chat"
)

func TestGuardRejectsSecondAcquire(t *testing.T) {
	g := NewGuard()
	chatID := chat.NewChatID()
	branchID := chat.NewBranchID()

	release, err := g.Acquire(chatID, branchID)
	require.NoError(t, err)
	assert.True(t, g.Active(chatID, branchID))

	_, err = g.Acquire(chatID, branchID)
	assert.ErrorIs(t, err, chat.ErrStreamActive)

	release()
	assert.False(t, g.Active(chatID, branchID))

	release2, err := g.Acquire(chatID, branchID)
	require.NoError(t, err)
	release2()
}

func TestGuardIsPerBranch(t *testing.T) {
	g := NewGuard()
	chatID := chat.NewChatID()

	r1, err := g.Acquire(chatID, chat.NewBranchID())
	require.NoError(t, err)
	defer r1()

	// A different branch of the same chat streams independently.
	r2, err := g.Acquire(chatID, chat.NewBranchID())
	require.NoError(t, err)
	defer r2()
}

func TestGuardReleaseIdempotent(t *testing.T) {
	g := NewGuard()
	chatID := chat.NewChatID()
	branchID := chat.NewBranchID()

	release, err := g.Acquire(chatID, branchID)
	require.NoError(t, err)
	release()

	// A second acquisition must not be clobbered by a stale double release.
	release2, err := g.Acquire(chatID, branchID)
	require.NoError(t, err)
	release()
	assert.True(t, g.Active(chatID, branchID))
	release2()
	assert.False(t, g.Active(chatID, branchID))
}
