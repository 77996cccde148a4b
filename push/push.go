// Package push sends web-push notifications to recipients with no open
// real-time stream, so a new message still surfaces on a closed tab.
package push

import (
	"context"
	"encoding/json"
	"log"

	"github.com/SherClockHolmes/webpush-go"

	"buzzconnect/store"
)

type Notifier interface {
	Notify(ctx context.Context, userID string, payload any)
}

// WebPush delivers VAPID-signed notifications to every stored subscription
// of a user. Failures are logged and swallowed; push is a nicety.
type WebPush struct {
	store      store.Store
	publicKey  string
	privateKey string
	subscriber string
}

func NewWebPush(st store.Store, publicKey, privateKey, subscriber string) *WebPush {
	return &WebPush{
		store:      st,
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

func (w *WebPush) Notify(ctx context.Context, userID string, payload any) {
	if w.privateKey == "" {
		return
	}

	subs, err := w.store.ListPushSubscriptions(ctx, userID)
	if err != nil {
		log.Printf("[push] list subscriptions for %s: %v", userID, err)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[push] marshal payload: %v", err)
		return
	}

	for _, sub := range subs {
		resp, err := webpush.SendNotification(body, &sub.Sub, &webpush.Options{
			Subscriber:      w.subscriber,
			VAPIDPublicKey:  w.publicKey,
			VAPIDPrivateKey: w.privateKey,
			TTL:             60,
		})
		if err != nil {
			log.Printf("[push] send to %s: %v", userID, err)
			continue
		}
		resp.Body.Close()
	}
}

// Noop is used when VAPID keys are not configured.
type Noop struct{}

func (Noop) Notify(context.Context, string, any) {}
