// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package supervisor runs the server's long-lived components under a suture v4
supervisor tree.

The tree has three layers, each its own supervisor so that a crash loop in
one does not restart the others:

	affinity (root)
	├── store-layer   cache pruning and DuckDB checkpoints
	├── events-layer  order event subscriber (NATS builds only)
	└── api-layer     HTTP server

Supervisor events are logged through sutureslog, which bridges suture's
event hook to a slog.Logger. cmd/server passes logging.NewSlogLogger so the
events end up in the same zerolog stream as everything else.

Service wrappers for the individual components live in the services
subpackage.
*/
package supervisor
