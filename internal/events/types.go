// Package events is the in-process publish/subscribe bus on which the
// Chain Client and Core announce state changes (pool updates, detected
// opportunities, bundle lifecycle steps, sequence gaps) to any handler
// registered through Subscribe, without direct references between
// publisher and handler.
package events

// Type names the kind of event carried on the bus. Enumerated, not
// dynamically registered.
type Type string

const (
	TypePoolUpdated        Type = "PoolUpdated"
	TypeOpportunityDetected Type = "OpportunityDetected"
	TypeBundleComposed     Type = "BundleComposed"
	TypeBundleSubmitted    Type = "BundleSubmitted"
	TypeBundleTerminal     Type = "BundleTerminal"
	TypeSequenceGap        Type = "SequenceGap"
	TypePolicyBlocked      Type = "PolicyBlocked"
)

// Data is implemented by every event payload type, mirroring the
// teacher's typed-event-data contract: the handler can type-switch on the
// concrete type without a second type-name field on the wire.
type Data interface {
	EventType() Type
}

// PoolUpdatedData announces a Market Graph mutation.
type PoolUpdatedData struct {
	VenueID string
	Slot    uint64
}

func (d *PoolUpdatedData) EventType() Type { return TypePoolUpdated }

// OpportunityDetectedData announces a new Opportunity from a detector.
type OpportunityDetectedData struct {
	OpportunityID string
	Kind          string
	NetProfit     int64
}

func (d *OpportunityDetectedData) EventType() Type { return TypeOpportunityDetected }

// BundleComposedData announces a freshly composed Bundle.
type BundleComposedData struct {
	BundleID string
	TxCount  int
}

func (d *BundleComposedData) EventType() Type { return TypeBundleComposed }

// BundleSubmittedData announces a bundle handed to the block engine.
type BundleSubmittedData struct {
	BundleID string
}

func (d *BundleSubmittedData) EventType() Type { return TypeBundleSubmitted }

// BundleTerminalData announces a SubmissionRecord reaching a terminal
// state. The Success-Rate Model is updated by the submission client
// itself, not through this event.
type BundleTerminalData struct {
	BundleID string
	State    string
	Success  bool
	LatencyNs int64
}

func (d *BundleTerminalData) EventType() Type { return TypeBundleTerminal }

// SequenceGapData announces a Chain Client reconnection gap.
type SequenceGapData struct {
	LastGoodSlot      uint64
	ReconnectedAtSlot uint64
}

func (d *SequenceGapData) EventType() Type { return TypeSequenceGap }

// PolicyBlockedData announces a policy-refused operation (e.g. sandwich
// detection while ETHICAL_MODE is set).
type PolicyBlockedData struct {
	Policy string
}

func (d *PolicyBlockedData) EventType() Type { return TypePolicyBlocked }
