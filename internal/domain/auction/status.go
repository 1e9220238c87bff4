package auction

// AuctionType selects the pricing mechanic of an auction
type AuctionType string

const (
	// AuctionTypeForward is an ascending auction: the highest bid wins
	AuctionTypeForward AuctionType = "FORWARD"
	// AuctionTypeReverse is a descending auction: the lowest bid wins
	AuctionTypeReverse AuctionType = "REVERSE"
	// AuctionTypeSealed hides bids until close, then the highest sealed bid wins
	AuctionTypeSealed AuctionType = "SEALED"
	// AuctionTypeDutch runs a descending price clock; the first taker wins
	AuctionTypeDutch AuctionType = "DUTCH"
)

// IsValid checks if the auction type is valid
func (t AuctionType) IsValid() bool {
	switch t {
	case AuctionTypeForward, AuctionTypeReverse, AuctionTypeSealed, AuctionTypeDutch:
		return true
	default:
		return false
	}
}

// String returns the string representation of AuctionType
func (t AuctionType) String() string {
	return string(t)
}

// Descending reports whether the starting price is an upper bound that the
// price moves down from (Reverse, Dutch) rather than a floor it rises from.
func (t AuctionType) Descending() bool {
	return t == AuctionTypeReverse || t == AuctionTypeDutch
}

// AuctionStatus represents the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionStatusDraft     AuctionStatus = "DRAFT"
	AuctionStatusPublished AuctionStatus = "PUBLISHED"
	AuctionStatusActive    AuctionStatus = "ACTIVE"
	AuctionStatusPaused    AuctionStatus = "PAUSED"
	AuctionStatusCompleted AuctionStatus = "COMPLETED"
	AuctionStatusCancelled AuctionStatus = "CANCELLED"
	AuctionStatusFailed    AuctionStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s AuctionStatus) IsValid() bool {
	switch s {
	case AuctionStatusDraft, AuctionStatusPublished, AuctionStatusActive, AuctionStatusPaused,
		AuctionStatusCompleted, AuctionStatusCancelled, AuctionStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of AuctionStatus
func (s AuctionStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are possible
func (s AuctionStatus) IsTerminal() bool {
	return s == AuctionStatusCompleted || s == AuctionStatusCancelled || s == AuctionStatusFailed
}

// IsOpen returns true if the auction holds its vehicle against new auctions
func (s AuctionStatus) IsOpen() bool {
	return s == AuctionStatusPublished || s == AuctionStatusActive || s == AuctionStatusPaused
}

// CanTransitionTo checks if the status can transition to the target status
func (s AuctionStatus) CanTransitionTo(target AuctionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if target == AuctionStatusCancelled {
		return true
	}
	switch s {
	case AuctionStatusDraft:
		return target == AuctionStatusPublished
	case AuctionStatusPublished:
		return target == AuctionStatusActive
	case AuctionStatusActive:
		return target == AuctionStatusPaused || target == AuctionStatusCompleted || target == AuctionStatusFailed
	case AuctionStatusPaused:
		return target == AuctionStatusActive
	default:
		return false
	}
}

// OpenStatuses returns the statuses that block another auction on the same vehicle
func OpenStatuses() []AuctionStatus {
	return []AuctionStatus{AuctionStatusPublished, AuctionStatusActive, AuctionStatusPaused}
}

// BidStatus represents the state of a single bid
type BidStatus string

const (
	// BidStatusPending is a sealed bid awaiting reveal at close
	BidStatusPending  BidStatus = "PENDING"
	BidStatusAccepted BidStatus = "ACCEPTED"
	BidStatusRejected BidStatus = "REJECTED"
	BidStatusOutbid   BidStatus = "OUTBID"
	BidStatusWinning  BidStatus = "WINNING"
)

// IsValid checks if the bid status is valid
func (s BidStatus) IsValid() bool {
	switch s {
	case BidStatusPending, BidStatusAccepted, BidStatusRejected, BidStatusOutbid, BidStatusWinning:
		return true
	default:
		return false
	}
}

// String returns the string representation of BidStatus
func (s BidStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the bid status can move to the target status
func (s BidStatus) CanTransitionTo(target BidStatus) bool {
	switch s {
	case BidStatusPending:
		return target == BidStatusAccepted || target == BidStatusRejected
	case BidStatusAccepted:
		return target == BidStatusOutbid || target == BidStatusWinning
	default:
		return false
	}
}
