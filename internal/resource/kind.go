package resource

// Kind is the category of a tracked resource.
type Kind int

const (
	KindPendingOperation Kind = iota
	KindTimer
	KindSubscription
	KindObserver
	KindElementRef
	KindBuffer
)

// Kinds returns every kind in reclamation priority order, highest first.
// Passes iterate this order so leak-prone kinds are reclaimed before bulk
// storage kinds.
func Kinds() []Kind {
	return []Kind{
		KindPendingOperation,
		KindTimer,
		KindSubscription,
		KindObserver,
		KindElementRef,
		KindBuffer,
	}
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPendingOperation:
		return "pending_operation"
	case KindTimer:
		return "timer"
	case KindSubscription:
		return "subscription"
	case KindObserver:
		return "observer"
	case KindElementRef:
		return "element_ref"
	case KindBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// KindFromString parses a kind name. Returns false for unknown names.
func KindFromString(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}
