package intent

import "strconv"

// Scope tags the purpose of a signed message. Codes are never reused and stay
// below 0x80, so the single byte BCS writes for a Scope equals the ULEB128
// variant index a Move or Rust verifier expects.
type Scope uint8

const (
	ProcessData Scope = 0
)

var scopeNames = map[Scope]string{
	ProcessData: "ProcessData",
}

// ParseScope maps a caller-supplied code to a Scope. Unknown codes are
// coerced to ProcessData and reported with known=false.
func ParseScope(code uint8) (scope Scope, known bool) {
	s := Scope(code)
	if _, ok := scopeNames[s]; ok {
		return s, true
	}
	return ProcessData, false
}

// Known reports whether s is a registered scope
func (s Scope) Known() bool {
	_, ok := scopeNames[s]
	return ok
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return "Scope(" + strconv.Itoa(int(s)) + ")"
}
