package api

import "slices"

// WrapperKeys are the container keys Central wraps list and object payloads in.
var WrapperKeys = []string{
	"data", "gateways", "switches", "aps", "swarms", "devices", "mcs", "group",
	"clients", "sites", "labels", "neighbors", "audit_logs", "vlans", "result",
	"networks", "ports", "rogue_aps", "suspect_aps", "interfering_aps",
	"neighbor_aps", "events", "notifications", "settings", "items", "poe_details",
	"trails", "servers", "subscriptions", "portals", "visitors", "interfaces",
	"areas", "lsas", "commands", "stacks", "routes", "samples", "dirty_diff_list",
}

// maxWrapperSiblings is the largest object still treated as a wrapper.
// Bigger objects are records that happen to contain a wrapper-named field.
const maxWrapperSiblings = 5

// Unwrap removes Central's wrapper object from a decoded payload. A wrapper
// key only matches when its value is a list or object, so a record with a
// scalar field named like a wrapper (group, result aside) is kept whole.
// When more than one wrapper key matches, v is returned unchanged along with
// the matched keys. Unwrap(Unwrap(v)) == Unwrap(v).
func Unwrap(v any) (any, []string) {
	for {
		next, ambiguous, changed := unwrapOnce(v)
		if !changed {
			return next, ambiguous
		}
		v = next
	}
}

func unwrapOnce(v any) (any, []string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, nil, false
	}

	size := len(m)
	for _, k := range []string{"cid", "status_code"} {
		if _, ok := m[k]; ok {
			size--
		}
	}
	if size > maxWrapperSiblings {
		return v, nil, false
	}

	if inner, ok := m["result"]; ok {
		return inner, nil, true
	}

	var found []string
	for _, k := range WrapperKeys {
		if inner, ok := m[k]; ok && isContainer(inner) {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 0:
		return v, nil, false
	case 1:
		return m[found[0]], nil, true
	default:
		slices.Sort(found)
		return v, found, false
	}
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// firstWrapperValue returns the value under the first wrapper key present in m.
func firstWrapperValue(m map[string]any) (any, bool) {
	for _, k := range WrapperKeys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}
