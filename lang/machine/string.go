package machine

// ObjString is Panda's string representation: an immutable byte sequence
// plus its cached FNV-1a hash. Every ObjString reachable from Go code is
// interned (spec.md invariant 2): for any two equal-bytes strings exactly
// one ObjString exists, so string equality reduces to pointer identity.
// Construct ObjStrings only through VM.InternString.
type ObjString struct {
	Obj
	Chars string
	hash  uint32
}

func (s *ObjString) String() string { return s.Chars }

// fnv1a computes the 32-bit FNV-1a hash of s, the hash function spec.md 4.3
// mandates for strings.
func fnv1a(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
