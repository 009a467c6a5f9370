// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package pgstore reads order history from PostgreSQL through a pgx
// connection pool. It serves deployments where the orders already live in
// the web application's relational database. Store implements
// recommend.DataProvider with the same schema and semantics as the DuckDB
// store in package database.
package pgstore
