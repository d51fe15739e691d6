package node

import "strconv"

// Recognized property keys (spec.md §6 "Node property keys recognized").
const (
	PropPauseOnIdle = "node.pause-on-idle"
	PropDriver      = "node.driver"
	PropMediaClass  = "media.class"
	PropSession     = "node.session"
	PropName        = "node.name"
	PropID          = "node.id"
)

// Properties is the node's string->string property bag. spec.md §1 scopes
// the property bag and serialization format as an external collaborator;
// this is just the mapping the node core reads and mirrors.
type Properties map[string]string

func (p Properties) clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (p Properties) boolOr(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// mirroredKeys are copied onto the registered global's property set
// (spec.md §6).
var mirroredKeys = []string{PropMediaClass, PropSession, PropName, PropID}
