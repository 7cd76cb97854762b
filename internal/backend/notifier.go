package backend

import (
	"sync"

	"ossideas/internal/domain"
)

// sessionNotifier distribuye cambios de sesion a los callbacks suscritos.
// Los callbacks se invocan fuera del lock para no bloquear al emisor.
type sessionNotifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(*domain.Session)
}

func newSessionNotifier() *sessionNotifier {
	return &sessionNotifier{subs: make(map[int]func(*domain.Session))}
}

func (n *sessionNotifier) Subscribe(fn func(*domain.Session)) func() {
	if fn == nil {
		return func() {}
	}
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

func (n *sessionNotifier) Notify(session *domain.Session) {
	n.mu.Lock()
	fns := make([]func(*domain.Session), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		var copied *domain.Session
		if session != nil {
			s := *session
			copied = &s
		}
		fn(copied)
	}
}
