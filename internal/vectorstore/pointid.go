package vectorstore

import "github.com/google/uuid"

// PointID maps an arbitrary record identifier onto a UUID-shaped point id.
//
// Qdrant only accepts UUID (or integer) point ids, but callers address
// records by free-form strings. Rather than keeping a side lookup table,
// the mapping is derived from the id itself:
//
//   - a string that already parses as a UUID is used unchanged
//     (canonical form), so round trips are the identity;
//   - otherwise the first 16 bytes of the string are copied (zero-padded
//     when shorter) and any remaining bytes are XOR-folded back into
//     those 16 positions, then the RFC 4122 version/variant bits are
//     forced so the result is a well-formed UUID.
//
// The mapping is deterministic, so the same record id always lands on
// the same point. Collisions between distinct long ids are possible in
// principle but astronomically unlikely in practice; that trade-off is
// accepted in exchange for not maintaining an id translation table.
func PointID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}

	var b [16]byte
	raw := []byte(id)
	copy(b[:], raw)
	for i := 16; i < len(raw); i++ {
		b[i%16] ^= raw[i]
	}

	// Force version 4 and the RFC 4122 variant.
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	u, err := uuid.FromBytes(b[:])
	if err != nil {
		// Unreachable: FromBytes only fails on length != 16.
		return uuid.NewSHA1(uuid.NameSpaceOID, raw).String()
	}
	return u.String()
}
