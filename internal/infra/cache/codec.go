// Package cache holds the analytics summary caches.
package cache

import (
	"encoding/binary"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"github.com/akashdesaidev/Threadspire/internal/domain"
)

const keyPrefix = "threadspire:analytics:"

var errCorrupt = errors.New("cached analytics failed checksum")

func key(userID string) string {
	return keyPrefix + userID
}

// encode frames the JSON summary behind its xxh3 checksum so that torn or
// foreign entries are detected on read.
func encode(a domain.Analytics) ([]byte, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, errors.Wrap(err, "marshal analytics")
	}
	buf := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint64(buf, xxh3.Hash(payload))
	return append(buf, payload...), nil
}

func decode(data []byte) (*domain.Analytics, error) {
	if len(data) < 8 {
		return nil, errCorrupt
	}
	payload := data[8:]
	if binary.BigEndian.Uint64(data[:8]) != xxh3.Hash(payload) {
		return nil, errCorrupt
	}
	var a domain.Analytics
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, errors.Wrap(err, "unmarshal analytics")
	}
	return &a, nil
}
