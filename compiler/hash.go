package compiler

// hash32 is a small FNV-1a variant used both to turn string literals
// into an i64-sized value (the ISA has no string type) and to hash
// struct field names into the data segment's name table (link.go).
func hash32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
