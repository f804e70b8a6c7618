package notifyfake

import (
	"sync"

	"github.com/panel-tools/checkin/notify"
)

var _ notify.Notifier = (*FakeNotifier)(nil)

// FakeNotifier records sent messages and can be made to fail.
type FakeNotifier struct {
	Messages []Message
	Err      error
	lock     sync.Mutex
}

type Message struct {
	Title string
	Body  string
}

func New() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) Send(title, message string) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Messages = append(n.Messages, Message{Title: title, Body: message})
	return nil
}
