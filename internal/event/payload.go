package event

// Payload is the open key-value structure carried by an inbound realtime
// event, plus any named capture groups merged in by the router.
type Payload map[string]interface{}

func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Merge returns a copy of the payload with the given entries added. The
// original payload is left untouched so a dispatch never mutates the
// caller's view of the event.
func (p Payload) Merge(extra map[string]string) Payload {
	merged := make(Payload, len(p)+len(extra))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
