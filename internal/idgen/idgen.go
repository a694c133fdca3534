// Package idgen generates short, URL-safe identifiers for audit records and
// process instances.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for each kind of generated identifier.
const (
	ChangePrefix   = "chg-"
	InstancePrefix = "inst-"
)

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// ChangeID returns an ID for a config change audit record.
func ChangeID() (string, error) {
	return withPrefix(ChangePrefix)
}

// InstanceID returns an ID identifying the running process on the event bus.
func InstanceID() (string, error) {
	return withPrefix(InstancePrefix)
}

// MustInstanceID is InstanceID for use during startup.
func MustInstanceID() string {
	id, err := InstanceID()
	if err != nil {
		panic(err)
	}
	return id
}

func withPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
