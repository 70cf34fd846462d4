// Package httpclient provides the HTTP client factory used for every outbound
// call postgen makes that is not owned by an SDK.
//
// Clients created by New have:
//   - Request logging with sanitized URLs (sensitive params redacted)
//   - User-Agent header injection
//   - Request ID propagation from the context (X-Request-ID)
//   - TLS 1.2 minimum (TLS 1.3 preferred)
//   - Connection pooling
//
// Clients never retry. A request that fails is reported once to the caller,
// which keeps the feedback relay's "sent once" contract intact.
//
// # Usage
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Timeout = 10 * time.Second
//	client, err := httpclient.New(cfg)
//	if err != nil {
//	    return err
//	}
//	resp, err := client.Do(req)
//
// # Observability
//
// All requests emit structured logs via log/slog:
//   - Debug level: successful requests (status < 400)
//   - Warn level: failed requests (4xx/5xx status, transport errors)
//   - Fields: method, url (sanitized), status, duration_ms, error
package httpclient
