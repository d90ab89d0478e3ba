package notify

import (
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"

	"spritemov/video"
)

// Notification is sent to all NotifyListeners registered with Notifier.
type Notification struct {
	TimeString string
	JobID      string
	Succeeded  bool
	Message    string
	Path       string
}

type NotifyListener interface {
	Notify(n *Notification) error
}

type Notifier struct {
	Listeners []NotifyListener

	// OnlyFailures suppresses notifications for successful renders.
	OnlyFailures bool

	l        sync.Mutex
	notified map[string]bool
}

// NewNotification describes a finished job. The job must be terminal.
func NewNotification(j *video.Job, at time.Time) *Notification {
	res := j.Wait()
	return &Notification{
		TimeString: at.Format("3:04 PM"),
		JobID:      j.ID,
		Succeeded:  res.Succeeded(),
		Message:    res.Message(),
		Path:       res.Path,
	}
}

// RenderFinished is invoked once a job reaches a terminal state. Each job is
// announced at most once. It returns the listeners' wait group so callers may
// block on delivery.
func (n *Notifier) RenderFinished(j *video.Job) *sync.WaitGroup {
	var wg sync.WaitGroup

	n.l.Lock()
	if n.notified == nil {
		n.notified = make(map[string]bool)
	}
	if n.notified[j.ID] {
		n.l.Unlock()
		return &wg
	}
	n.notified[j.ID] = true
	n.l.Unlock()

	notification := NewNotification(j, time.Now())
	if notification.Succeeded && n.OnlyFailures {
		return &wg
	}

	log.Infof("Sending notification: %v", spew.Sdump(notification))
	for _, l := range n.Listeners {
		wg.Add(1)
		go func(l NotifyListener) {
			defer wg.Done()
			if err := l.Notify(notification); err != nil {
				log.Errorf("Failed to send notification: %v", err)
			}
		}(l)
	}
	return &wg
}

// Forget drops the record that id was announced.
func (n *Notifier) Forget(id string) {
	n.l.Lock()
	defer n.l.Unlock()
	delete(n.notified, id)
}
