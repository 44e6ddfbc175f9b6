// Package offline is the composition root for the resilience layer: it wires
// a durable action queue, a pending-transaction tracker, a circuit breaker
// registry, and a connectivity watcher into one Client.
//
// Typical use:
//
//	client, err := offline.New(offline.Config{
//		Store:  store,
//		Logger: logger,
//	})
//	if err != nil {
//		return err
//	}
//
//	client.Queue().RegisterHandler("send-gift", sendGift)
//
//	if err := client.Start(ctx); err != nil {
//		return err
//	}
//	defer client.Shutdown(ctx)
//
// Each subpackage is also usable on its own; the Client only arranges them.
package offline
