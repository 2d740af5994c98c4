package account

import "time"

// Text is a bilingual string pair.
type Text struct {
	EN string `json:"en"`
	AR string `json:"ar"`
}

// Notification is one entry in the account's bounded inbox.
type Notification struct {
	Title    Text      `json:"title"`
	Body     Text      `json:"body"`
	PhotoURL string    `json:"photo_url"`
	Kind     string    `json:"kind"`
	Seen     bool      `json:"seen"`
	Date     time.Time `json:"date"`
}

func sameNotification(a, b Notification) bool {
	return a.Title.EN == b.Title.EN &&
		a.Title.AR == b.Title.AR &&
		a.Body.EN == b.Body.EN &&
		a.Body.AR == b.Body.AR
}

// WithNotification inserts the notification at the front of the inbox.
// The inbox never exceeds capacity; the oldest entry is evicted.
func (a Account) WithNotification(n Notification, capacity int) Account {
	if capacity < 1 {
		return a
	}
	inbox := make([]Notification, 0, capacity)
	inbox = append(inbox, n)
	for _, old := range a.Notifications {
		if len(inbox) == capacity {
			break
		}
		inbox = append(inbox, old)
	}
	a.Notifications = inbox
	return a
}

// ShouldReceive reports whether the account is eligible for the
// notification: true unless an identical entry is already sitting unseen
// in the inbox. Prevents re-notifying about a recurring condition on
// every scheduling tick.
func (a Account) ShouldReceive(n Notification) bool {
	for _, existing := range a.Notifications {
		if !existing.Seen && sameNotification(existing, n) {
			return false
		}
	}
	return true
}

// SeenNotifications marks every inbox entry seen and returns the updated
// account, whether everything was already seen, and the pre-update list.
func (a Account) SeenNotifications() (Account, bool, []Notification) {
	if len(a.Notifications) == 0 {
		return a, true, nil
	}
	list := make([]Notification, len(a.Notifications))
	copy(list, a.Notifications)

	allSeen := true
	updated := make([]Notification, len(a.Notifications))
	for i, n := range a.Notifications {
		allSeen = allSeen && n.Seen
		n.Seen = true
		updated[i] = n
	}
	a.Notifications = updated
	return a, allSeen, list
}

// ClearedNotifications empties the inbox and reports whether it already
// was empty.
func (a Account) ClearedNotifications() (Account, bool) {
	wasEmpty := len(a.Notifications) == 0
	a.Notifications = nil
	return a, wasEmpty
}
