package datagram

// TagForOp maps a command operation name to its request tag.
func TagForOp(op string) (string, bool) {
	switch op {
	case "LIST":
		return TagList, true
	case "RESERVE":
		return TagReserve, true
	case "CANCEL":
		return TagCancel, true
	case "INVOICE":
		return TagInvoice, true
	}
	return "", false
}

// OpForTag maps a request tag to its command operation name.
func OpForTag(tag string) (string, bool) {
	switch tag {
	case TagList:
		return "LIST", true
	case TagReserve:
		return "RESERVE", true
	case TagCancel:
		return "CANCEL", true
	case TagInvoice:
		return "INVOICE", true
	}
	return "", false
}
