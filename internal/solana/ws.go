package solana

import "context"

// SlotSubscriber streams newly processed slots. Follow-mode scanning uses
// it to learn when a slot is ready instead of polling getSlot.
type SlotSubscriber interface {
	// SubscribeSlots opens a slot subscription. The channel is closed by Close.
	SubscribeSlots(ctx context.Context) (<-chan SlotNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SlotNotification is one slotNotification message.
type SlotNotification struct {
	Slot   int64
	Parent int64
	Root   int64
}
