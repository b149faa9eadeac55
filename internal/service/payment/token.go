package payment

import (
	"fmt"
	"strconv"
	"strings"
)

type TokenKind int

const (
	TokenUnknown TokenKind = iota
	TokenBooking
	TokenMembership
)

func (k TokenKind) String() string {
	switch k {
	case TokenBooking:
		return "booking"
	case TokenMembership:
		return "membership"
	default:
		return "unknown"
	}
}

// Token is the decoded correlation token echoed back by the gateway in custom_str1.
// For TokenBooking ID is the booking; for TokenMembership it is the user and
// Tier names the plan.
type Token struct {
	Kind TokenKind
	ID   int64
	Tier string
	Raw  string
}

func BookingToken(bookingID int64) string {
	return fmt.Sprintf("booking_%d", bookingID)
}

func MembershipToken(userID int64, tier string) string {
	return fmt.Sprintf("membership_%d_%s", userID, tier)
}

// ParseToken decodes "booking_<id>[_<extra>]" and "membership_<userId>_<tier>".
// Anything else comes back as TokenUnknown.
func ParseToken(raw string) Token {
	raw = strings.TrimSpace(raw)
	unknown := Token{Kind: TokenUnknown, Raw: raw}

	kind, rest, ok := strings.Cut(raw, "_")
	if !ok {
		return unknown
	}

	switch kind {
	case "booking":
		idPart, _, _ := strings.Cut(rest, "_")
		id, ok := parseID(idPart)
		if !ok {
			return unknown
		}
		return Token{Kind: TokenBooking, ID: id, Raw: raw}
	case "membership":
		idPart, tier, ok := strings.Cut(rest, "_")
		if !ok || tier == "" {
			return unknown
		}
		id, ok := parseID(idPart)
		if !ok {
			return unknown
		}
		return Token{Kind: TokenMembership, ID: id, Tier: tier, Raw: raw}
	default:
		return unknown
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
