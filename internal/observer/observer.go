// Package observer implements an observer bus: a subject ("Observable")
// can be watched by any number of Observers, notified in LIFO insertion
// order, tolerating self-detachment mid-notification.
package observer

// Observable is the subject side of the bus. It owns the list of attached
// observers; it does not own the observers themselves.
type Observable struct {
	head *Observer
}

// Observer attaches a callback to exactly one Observable. The zero value is
// not usable; create one with New.
type Observer struct {
	subject *Observable
	notify  func(arg any)
	prev    *Observer
	next    *Observer
}

// New attaches notify to subject and returns the observer handle. notify is
// invoked synchronously from Notify, in LIFO order relative to other
// observers attached to the same subject.
func New(subject *Observable, notify func(arg any)) *Observer {
	o := &Observer{subject: subject, notify: notify}
	o.next = subject.head
	if subject.head != nil {
		subject.head.prev = o
	}
	subject.head = o
	return o
}

// Deinit detaches the observer. Safe to call multiple times, and safe to
// call after the subject has already been torn down by Observable.Deinit
// (which nils out Subject on every remaining observer).
func (o *Observer) Deinit() {
	if o == nil || o.subject == nil {
		return
	}
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		o.subject.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	}
	o.subject = nil
	o.prev = nil
	o.next = nil
}

// Notify synchronously invokes every attached observer's callback with arg,
// in LIFO (most-recently-attached-first) order. The current observer is
// allowed to call Deinit on itself (or destroy the object it's embedded in)
// from within notify: Notify reads the next pointer before the callback
// runs, so detaching mid-notification is safe.
func (subject *Observable) Notify(arg any) {
	cur := subject.head
	for cur != nil {
		next := cur.next
		cur.notify(arg)
		cur = next
	}
}

// Deinit detaches every remaining observer, severing the link in both
// directions so a later Observer.Deinit on any of them is a no-op.
func (subject *Observable) Deinit() {
	cur := subject.head
	subject.head = nil
	for cur != nil {
		next := cur.next
		cur.subject = nil
		cur.prev = nil
		cur.next = nil
		cur = next
	}
}
