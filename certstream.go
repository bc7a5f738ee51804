// Package certstream provides a reconnecting Go client for certstream-style
// WebSocket event feeds.
//
// The client keeps one WebSocket session open to the feed, decodes every
// text frame as a JSON object and hands it to each registered [Handler] in
// registration order. When the session drops it reconnects with a doubling
// delay between 500ms and 5s. Heartbeat messages are filtered before they
// reach handlers.
//
// # Thread Safety
//
// [Client] is safe for concurrent use by multiple goroutines. Handlers may
// be registered while the client is running. In the default
// [DispatchConcurrent] mode handlers for different events run concurrently
// and must synchronize any shared state themselves.
//
// # Basic Usage
//
//	client := certstream.New()
//
//	client.ListenFunc(func(ctx context.Context, ev certstream.Event) error {
//	    fmt.Println(ev.MessageType())
//	    return nil
//	})
//
//	// Blocks, reconnecting as needed.
//	if err := client.Run(true); err != nil {
//	    log.Fatal(err)
//	}
//
// # Errors
//
// Connect failures ([ConnectError]), malformed frames ([DecodeError]),
// handler failures ([HandlerError]) and dropped sessions ([SessionError])
// are recovered and reported through [WithOnError] and the logger. With
// reconnect disabled, Start returns the first session's terminal error.
//
// # Observability
//
// Use [WithLogger], [WithOnReceive] and [WithOnStateChange] to add logging
// and monitoring to the client:
//
//	client := certstream.New(
//	    certstream.WithLogger(slog.Default()),
//	    certstream.WithOnError(func(err error) {
//	        metrics.Errors.Inc()
//	    }),
//	)
package certstream
