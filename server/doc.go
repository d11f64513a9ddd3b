// Package server exposes the Telegram webhook and the analysis API over HTTP.
//
// Routes:
//
//	GET  /api/health            service status
//	POST /api/telegram          Telegram webhook; acknowledges immediately
//	POST /api/mini-app/analyze  ranks sources for {"text": ...}
//	POST /api/test-analyze      analysis and search details for {"text": ...}
//	POST /api/webhook/set       registers the webhook URL with Telegram
//	GET  /metrics               Prometheus metrics, when a recorder is set
package server
