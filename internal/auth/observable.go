package auth

import "sync"

// Observable fans values out to subscribers. Listeners are called outside the
// lock, in subscription order.
type Observable[T any] struct {
	mu        sync.Mutex
	next      int
	order     []int
	listeners map[int]func(T)
}

// Subscribe registers fn and returns the function that removes it
func (o *Observable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.listeners == nil {
		o.listeners = make(map[int]func(T))
	}
	id := o.next
	o.next++
	o.listeners[id] = fn
	o.order = append(o.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.listeners, id)
			for i, v := range o.order {
				if v == id {
					o.order = append(o.order[:i], o.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish calls every current subscriber with v
func (o *Observable[T]) Publish(v T) {
	o.mu.Lock()
	fns := make([]func(T), 0, len(o.order))
	for _, id := range o.order {
		fns = append(fns, o.listeners[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of subscribers
func (o *Observable[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}

// StateNotifier holds the signed-in user of one session and notifies on change.
// New subscribers receive the current state immediately.
type StateNotifier struct {
	mu      sync.Mutex
	current *User
	obs     Observable[*User]
}

// NewStateNotifier creates a notifier with nobody signed in
func NewStateNotifier() *StateNotifier {
	return &StateNotifier{}
}

// Current returns the signed-in user, or nil
func (n *StateNotifier) Current() *User {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Set replaces the current user and notifies subscribers
func (n *StateNotifier) Set(user *User) {
	n.mu.Lock()
	n.current = user
	n.mu.Unlock()
	n.obs.Publish(user)
}

// Subscribe registers fn, calls it with the current user, and returns the unsubscribe function
func (n *StateNotifier) Subscribe(fn func(*User)) (unsubscribe func()) {
	unsubscribe = n.obs.Subscribe(fn)
	fn(n.Current())
	return unsubscribe
}

// Subscribers returns the number of live subscriptions
func (n *StateNotifier) Subscribers() int {
	return n.obs.Len()
}
