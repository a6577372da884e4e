// Package flowcanvas is the backend for a visual flow/automation editor.
//
// The core is the editor package: an in-memory model of a directed
// node-and-edge graph with selection, free-text filtering, pluggable
// layout, and history-checkpoint plumbing. Around it:
//
//   - flowstore: flow persistence on NATS JetStream KV with optimistic
//     concurrency and JSON Schema document validation
//   - history: the undo/redo stack collaborating with the editor via its
//     checkpoint hook
//   - catalog: the node-type catalog supplying new-node defaults
//   - service: editor sessions and flow CRUD over HTTP, with a WebSocket
//     notification stream per session
//   - natsclient: NATS connection management and a KV wrapper with CAS
//     retries
//   - metric, health, errors, config: the ambient infrastructure
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│        EditorService (HTTP/WS)      │  sessions, flow CRUD,
//	│                                     │  notification streams
//	└─────────────────────────────────────┘
//	           ↓ owns per session
//	┌──────────────────┐  ┌───────────────┐
//	│   editor.State   │→ │ history.Stack │  checkpoint hook pushes
//	│ (graph + filter) │  │  (undo/redo)  │  pre-mutation snapshots
//	└──────────────────┘  └───────────────┘
//	           ↓ load / save
//	┌─────────────────────────────────────┐
//	│       flowstore on NATS KV          │  versioned flow documents
//	└─────────────────────────────────────┘
//
// Every structural mutation (add, delete, duplicate, connect) records
// exactly one history checkpoint and emits one user-facing notification.
// Precondition misses (no selection, missing endpoints, absent canvas)
// degrade to silent no-ops; the editor never raises errors under normal
// interaction.
//
// # Usage
//
//	natsClient, _ := natsclient.NewClient("nats://localhost:4222")
//	_ = natsClient.Connect(ctx)
//
//	store, _ := flowstore.NewStore(natsClient)
//	svc, _ := service.NewEditorService(store, catalog.NewRegistry(), cfg.Editor)
//
//	mux := http.NewServeMux()
//	svc.RegisterHTTPHandlers("/api/v1/", mux)
//	_ = svc.Start(ctx)
package flowcanvas
