// Package badger implements storage.UpdateLedger on BadgerDB.
//
// Keys are BLAKE2b content IDs of the caller's key, so arbitrary update
// identifiers map onto fixed-size badger keys. Expiry uses badger's native
// TTL support.
package badger
