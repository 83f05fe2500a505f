package streaming

import (
	"sync"

	"github.com/go-go-golems/loom/pkg/chat"
)

type guardKey struct {
	chatID   chat.ChatID
	branchID chat.BranchID
}

// Guard enforces at most one active stream per (chat, branch) pair. It
// replaces the advisory boolean loading flag with a generation counter: a
// second send or fork while a stream is running is rejected deterministically
// instead of racing.
type Guard struct {
	mu         sync.Mutex
	generation uint64
	active     map[guardKey]uint64
}

func NewGuard() *Guard {
	return &Guard{
		active: make(map[guardKey]uint64),
	}
}

// Acquire reserves the (chat, branch) pair for one stream. It returns
// ErrStreamActive if a stream already holds the pair. The returned release
// function is idempotent.
func (g *Guard) Acquire(chatID chat.ChatID, branchID chat.BranchID) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := guardKey{chatID: chatID, branchID: branchID}
	if _, held := g.active[key]; held {
		return nil, chat.ErrStreamActive
	}

	g.generation++
	gen := g.generation
	g.active[key] = gen

	released := false
	release := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if released {
			return
		}
		released = true
		// Only clear if the slot still belongs to this acquisition.
		if cur, held := g.active[key]; held && cur == gen {
			delete(g.active, key)
		}
	}
	return release, nil
}

// Active reports whether a stream currently holds the (chat, branch) pair.
func (g *Guard) Active(chatID chat.ChatID, branchID chat.BranchID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.active[guardKey{chatID: chatID, branchID: branchID}]
	return held
}
