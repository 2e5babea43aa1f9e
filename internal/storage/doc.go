package storage

// Package storage persists download and forward records in MongoDB. It is
// the only package that talks to the database; everything above it depends
// on the cache.Store interface.
