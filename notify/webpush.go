package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// DefaultSubscriber is the VAPID contact used when none is configured.
	DefaultSubscriber = "spritemov@localhost"

	pushTTL   = 600
	pushTopic = "render-finished"
)

type VAPIDKey struct {
	ID      uint
	Public  string
	Private string
}

// Subscriber is a browser registered for render notifications.
type Subscriber struct {
	gorm.Model

	Peer     string
	Endpoint string `gorm:"uniqueIndex;size:512"`
	// SubscriptionJSON is the webpush.Subscription as posted by the browser.
	SubscriptionJSON string

	LastSuccess        *time.Time
	LastFailure        *time.Time
	LastFailureMessage string
}

// PushMessage is the JSON body delivered to the service worker.
type PushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	JobID string `json:"job_id"`
	// URL opens the finished video or the job status page.
	URL string `json:"url"`
}

// NewPushMessage formats n for display as a browser notification.
func NewPushMessage(n *Notification) *PushMessage {
	m := &PushMessage{JobID: n.JobID, Body: n.Message}
	if n.Succeeded {
		m.Title = fmt.Sprintf("Render finished at %s", n.TimeString)
		m.URL = "/video?id=" + n.JobID
	} else {
		m.Title = fmt.Sprintf("Render failed at %s", n.TimeString)
		m.URL = "/job?id=" + n.JobID
	}
	return m
}

// WebPush delivers notifications to subscribed browsers. Subscriptions and
// the VAPID key pair live in the database.
type WebPush struct {
	Key     *VAPIDKey
	Contact string

	db *gorm.DB
}

func NewWebPush(db *gorm.DB, contact string) (*WebPush, error) {
	if err := db.AutoMigrate(&VAPIDKey{}, &Subscriber{}); err != nil {
		return nil, err
	}
	if contact == "" {
		contact = DefaultSubscriber
	}
	p := &WebPush{Key: &VAPIDKey{}, Contact: contact, db: db}

	err := db.First(p.Key).Error
	switch {
	case err == nil:
		log.Infof("Web push VAPID keys loaded from database")
	case errors.Is(err, gorm.ErrRecordNotFound):
		priv, pub, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			return nil, err
		}
		p.Key.Private, p.Key.Public = priv, pub
		if err := db.Create(p.Key).Error; err != nil {
			return nil, err
		}
		log.Infof("Web push VAPID keys generated")
	default:
		return nil, fmt.Errorf("loading VAPID keys: %v", err)
	}
	return p, nil
}

func (p *WebPush) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/push_get_pubkey", p.handlePubkey)
	mux.HandleFunc("/push_get_subscriptions", p.handleList)
	mux.HandleFunc("/push_subscribe", p.handleSubscribe)
	mux.HandleFunc("/push_unsubscribe", p.handleUnsubscribe)
	mux.HandleFunc("/push_test", p.handleTest)
}

func (p *WebPush) handlePubkey(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, p.Key.Public)
}

// decodeSubscription reads a browser PushSubscription from a POST body.
func decodeSubscription(w http.ResponseWriter, r *http.Request) (*webpush.Subscription, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return nil, false
	}
	sub := &webpush.Subscription{}
	if err := json.NewDecoder(r.Body).Decode(sub); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if sub.Endpoint == "" {
		http.Error(w, "subscription has no endpoint", http.StatusBadRequest)
		return nil, false
	}
	return sub, true
}

func (p *WebPush) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	sub, ok := decodeSubscription(w, r)
	if !ok {
		return
	}
	js, _ := json.Marshal(sub)
	s := &Subscriber{}
	err := p.db.Where(Subscriber{Endpoint: sub.Endpoint}).
		Assign(Subscriber{Peer: r.RemoteAddr, SubscriptionJSON: string(js)}).
		FirstOrCreate(s).Error
	if err != nil {
		log.Errorf("Failed to store push subscription: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.WithField("addr", r.RemoteAddr).Infof("Push subscription %d registered", s.ID)
}

func (p *WebPush) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	sub, ok := decodeSubscription(w, r)
	if !ok {
		return
	}
	res := p.db.Where("endpoint = ?", sub.Endpoint).Delete(&Subscriber{})
	if res.Error != nil {
		log.Errorf("Failed to delete push subscription: %v", res.Error)
		http.Error(w, res.Error.Error(), http.StatusInternalServerError)
		return
	}
	if res.RowsAffected == 0 {
		http.Error(w, "subscription not found", http.StatusNotFound)
		return
	}
	log.WithField("addr", r.RemoteAddr).Info("Push subscription removed")
}

func (p *WebPush) handleList(w http.ResponseWriter, r *http.Request) {
	var subs []*Subscriber
	if err := p.db.Find(&subs).Error; err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, s := range subs {
		// Key material stays on the server.
		s.SubscriptionJSON = "REDACTED"
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(subs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (p *WebPush) handleTest(w http.ResponseWriter, r *http.Request) {
	n := &Notification{
		TimeString: time.Now().Format("3:04 PM"),
		JobID:      "test",
		Succeeded:  true,
		Message:    "This is a test notification.",
	}
	if err := p.Notify(n); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (p *WebPush) send(s *Subscriber, payload []byte) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(s.SubscriptionJSON), &sub); err != nil {
		return err
	}

	resp, err := webpush.SendNotification(payload, &sub, &webpush.Options{
		Subscriber:      p.Contact,
		VAPIDPublicKey:  p.Key.Public,
		VAPIDPrivateKey: p.Key.Private,
		TTL:             pushTTL,
		Urgency:         webpush.UrgencyNormal,
		Topic:           pushTopic,
	})
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			log.Infof("Push service reports %v for subscription %d, removing it", resp.Status, s.ID)
			return p.db.Delete(s).Error
		}
		if err == nil && resp.StatusCode >= 400 {
			err = fmt.Errorf("push service returned %v", resp.Status)
		}
	}

	now := time.Now()
	if err != nil {
		log.Warnf("Web push to subscription %d failed: %v", s.ID, err)
		s.LastFailure = &now
		s.LastFailureMessage = err.Error()
	} else {
		s.LastSuccess = &now
	}
	return p.db.Save(s).Error
}

// Notify pushes n to every subscriber and waits for delivery.
func (p *WebPush) Notify(n *Notification) error {
	payload, err := json.Marshal(NewPushMessage(n))
	if err != nil {
		return err
	}

	var subs []*Subscriber
	if err := p.db.Find(&subs).Error; err != nil {
		return err
	}

	log.Infof("Sending web push notification to %d subscribers", len(subs))
	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(s *Subscriber) {
			defer wg.Done()
			if err := p.send(s, payload); err != nil {
				log.Errorf("Web push notify failed: %v", err)
			}
		}(s)
	}
	wg.Wait()
	return nil
}
