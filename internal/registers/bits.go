// internal/registers/bits.go
package registers

import "strconv"

// Tags group status bits into output keys.
const (
	tagFault      = "faults"
	tagWarning    = "warnings"
	tagProtection = "protection_alarms"
	tagFlag       = "" // bit becomes a boolean field named after the bit
)

// Bit declares one status bit.
type Bit struct {
	Index uint
	Tag   string
	Name  string
}

// scanBits evaluates table against word. Tagged bits that are set are appended
// to f[tag] in table order; flag bits always produce a bool.
func scanBits(f Fields, word uint32, table []Bit) {
	for _, b := range table {
		set := word&(1<<b.Index) != 0
		if b.Tag == tagFlag {
			f[b.Name] = set
			continue
		}
		if set {
			f[b.Tag] = append(list(f, b.Tag), b.Name)
		}
	}
}

// pair declares a two-bit alarm field at Shift.
type pair struct {
	Shift uint
	Name  string
}

// scanPairs decodes 2-bit alarm codes: 01 low, 10 high, 11 other.
// suffix holds the name suffix for codes 1..3.
func scanPairs(word uint32, table []pair, suffix [3]string) []string {
	out := []string{}
	for _, p := range table {
		code := (word >> p.Shift) & 0x03
		if code != 0 {
			out = append(out, p.Name+suffix[code-1])
		}
	}
	return out
}

// cellPairs returns per-cell 2-bit fields cell_1..cell_n.
func cellPairs(n int) []pair {
	out := make([]pair, n)
	for i := range out {
		out[i] = pair{Shift: uint(i * 2), Name: "cell_" + strconv.Itoa(i+1)}
	}
	return out
}

// list returns f[key] as a string slice, creating it if missing.
func list(f Fields, key string) []string {
	if v, ok := f[key].([]string); ok {
		return v
	}
	return []string{}
}

// ensureLists makes sure every key holds a (possibly empty) list.
func ensureLists(f Fields, keys ...string) {
	for _, k := range keys {
		f[k] = list(f, k)
	}
}
