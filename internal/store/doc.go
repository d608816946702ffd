// Package store defines the persistence interfaces for the application's
// durable records (itineraries, generations, trips, queued jobs) along with
// the DBTX abstraction and transaction helper shared by all implementations.
package store
